package llm

import "context"

// Stub 确定性补全桩实现，用于开发环境与测试。
//
// Response 非空时固定返回该文本，否则返回 Err（默认 ErrCompletion）。
type Stub struct {
	Response string
	Err      error
}

// Complete 返回固定文本或固定错误。
func (s *Stub) Complete(_ context.Context, _, _ string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if s.Response == "" {
		return "", ErrCompletion
	}
	return s.Response, nil
}
