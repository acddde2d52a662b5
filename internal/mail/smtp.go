package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"mailagent/backend/internal/config"
)

// SMTPSender 通过 SMTP 出站服务器发送回复。
type SMTPSender struct {
	addr     string
	from     string
	username string
	password string
	timeout  time.Duration
	log      *zap.Logger
}

// NewSMTPSender 创建 SMTP 发送器。
func NewSMTPSender(cfg config.SMTPConfig, log *zap.Logger) *SMTPSender {
	return &SMTPSender{
		addr:     cfg.Addr,
		from:     cfg.From,
		username: cfg.Username,
		password: cfg.Password,
		timeout:  cfg.Timeout,
		log:      log,
	}
}

// Send 发送一封回复邮件。
//
// threadID 非空时写入 In-Reply-To / References 头以保持会话归组。
// 整个发送过程受配置超时约束，超时与其他失败一样包装为 ErrTransport。
func (s *SMTPSender) Send(ctx context.Context, to, subject, body, threadID string) error {
	if s.addr == "" || s.from == "" {
		return fmt.Errorf("%w: smtp not configured", ErrTransport)
	}

	msg := buildRFC822(s.from, to, subject, body, threadID)

	var auth sasl.Client
	if s.username != "" {
		auth = sasl.NewPlainClient("", s.username, s.password)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(s.addr, auth, s.from, []string{to}, strings.NewReader(msg))
	}()

	select {
	case err := <-done:
		if err != nil {
			s.log.Warn("smtp send failed",
				zap.String("to", to),
				zap.Error(err),
			)
			return fmt.Errorf("%w: %v", ErrTransport, err)
		}
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrTransport, ctx.Err())
	}

	s.log.Info("reply sent",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}

// buildRFC822 构造最小可用的 RFC 822 邮件文本。
func buildRFC822(from, to, subject, body, threadID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	if threadID != "" {
		fmt.Fprintf(&b, "In-Reply-To: %s\r\n", threadID)
		fmt.Fprintf(&b, "References: %s\r\n", threadID)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return b.String()
}
