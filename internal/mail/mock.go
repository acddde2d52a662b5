package mail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"mailagent/backend/internal/domain"
)

// MockTransport 确定性邮件传输桩实现，用于开发验证与测试。
//
// Fetch 生成固定样本邮件；Send 只记录不外发；
// Download 在目标目录写入占位文件。并发安全。
type MockTransport struct {
	mu   sync.Mutex
	sent []SentReply
	log  *zap.Logger
}

// SentReply 记录一次 Send 调用的参数。
type SentReply struct {
	To       string
	Subject  string
	Body     string
	ThreadID string
}

// NewMockTransport 创建邮件传输桩。
func NewMockTransport(log *zap.Logger) *MockTransport {
	return &MockTransport{log: log}
}

// Fetch 生成 limit 封确定性样本邮件。
func (t *MockTransport) Fetch(_ context.Context, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 5
	}

	messages := make([]domain.Message, 0, limit)
	for i := 1; i <= limit; i++ {
		msg := domain.Message{
			ID:       fmt.Sprintf("sample_%d", i),
			ThreadID: fmt.Sprintf("thread_%d", i),
			Sender:   fmt.Sprintf("client%d@example.com", i),
			Subject:  fmt.Sprintf("Request for Project Update - Email %d", i),
			Body:     fmt.Sprintf("Hi, I need an update on the project status. Can you provide a summary? This is sample email %d.", i),
			Date:     time.Now().UTC().Format(time.RFC3339),
		}
		// 偶数封带一个附件
		if i%2 == 0 {
			msg.Attachments = []domain.Attachment{
				{
					Filename:     fmt.Sprintf("document_%d.pdf", i),
					MimeType:     "application/pdf",
					Size:         1024,
					AttachmentID: fmt.Sprintf("att_%d", i),
				},
			}
		}
		messages = append(messages, msg)
	}

	t.log.Info("generated sample messages", zap.Int("count", len(messages)))
	return messages, nil
}

// Send 记录回复而不实际外发。
func (t *MockTransport) Send(_ context.Context, to, subject, body, threadID string) error {
	t.mu.Lock()
	t.sent = append(t.sent, SentReply{To: to, Subject: subject, Body: body, ThreadID: threadID})
	t.mu.Unlock()

	t.log.Info("mock reply recorded",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}

// Sent 返回已记录回复的快照。
func (t *MockTransport) Sent() []SentReply {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SentReply, len(t.sent))
	copy(out, t.sent)
	return out
}

// Download 在目标目录写入占位附件文件，返回文件路径。
func (t *MockTransport) Download(_ context.Context, messageID, attachmentID, filename, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	path := filepath.Join(dir, filename)
	content := fmt.Sprintf("placeholder attachment content for %s (message %s, attachment %s)\n",
		filename, messageID, attachmentID)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	t.log.Info("mock attachment written", zap.String("path", path))
	return path, nil
}
