package mail

import (
	"context"
	"errors"

	"mailagent/backend/internal/domain"
)

// ErrTransport 邮件传输层失败错误
//
// 发送、拉取、附件下载的全部失败形态统一归于此类，
// 调用方按可恢复条件处理，不作为致命错误。
var ErrTransport = errors.New("mail transport failed")

// Fetcher 定义邮件拉取操作。
type Fetcher interface {
	Fetch(ctx context.Context, limit int) ([]domain.Message, error)
}

// Sender 定义回复发送操作。
type Sender interface {
	Send(ctx context.Context, to, subject, body, threadID string) error
}

// Downloader 定义附件下载操作。
//
// 成功时返回落盘后的文件路径。
type Downloader interface {
	Download(ctx context.Context, messageID, attachmentID, filename, dir string) (string, error)
}

// Transport 定义完整的邮件传输能力接口。
//
// 核心逻辑只依赖该接口，注入真实实现或确定性桩实现，
// 内部不做任何可用性分支判断。
type Transport interface {
	Fetcher
	Sender
	Downloader
}

// Combined 以独立实现拼装出完整传输层。
//
// 例如拉取与附件走桩实现、发送走真实 SMTP。
type Combined struct {
	Fetcher
	Sender
	Downloader
}
