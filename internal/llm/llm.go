package llm

import (
	"context"
	"errors"
)

// ErrCompletion 补全服务调用失败错误
//
// 覆盖服务未接入、认证失败、超时、空响应等全部失败形态，
// 调用方统一按可恢复条件处理（触发回退路径）。
var ErrCompletion = errors.New("completion service call failed")

// Completer 定义远程文本补全服务的能力接口。
//
// 核心逻辑只依赖该接口，注入真实客户端或确定性桩实现，
// 内部不做任何可用性分支判断。
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
