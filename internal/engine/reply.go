package engine

import (
	"fmt"
	"strings"

	"mailagent/backend/internal/domain"
)

// templateReply 固定模板回复。
//
// 远程补全不可用时的确定性降级：相同的邮件与决策
// 必然产生相同文本。
func templateReply(msg domain.Message, decision domain.Decision) string {
	clientName := "there"
	if decision.Entities.ClientName != nil && *decision.Entities.ClientName != "" {
		clientName = *decision.Entities.ClientName
	}

	subject := msg.Subject
	if subject == "" {
		subject = "your request"
	}

	return fmt.Sprintf(`Hi %s,

Thank you for your email. I've received your message regarding %q.

I'll review this and get back to you shortly. If this is urgent, please don't hesitate to reach out directly.

Best regards,
Mail Automation Agent`, clientName, subject)
}

// trimReply 裁剪远程回复文本首尾空白。
func trimReply(s string) string {
	return strings.TrimSpace(s)
}
