package domain

// Message 表示一封待处理的入站邮件。
//
// 由邮件传输层（或外部调用方）构造，进入处理管线后只读，不会被修改。
type Message struct {
	ID          string       `json:"id"`                 // 邮件唯一标识，缺省时由服务层生成
	ThreadID    string       `json:"threadId,omitempty"` // 会话线程ID，用于回复归组
	Sender      string       `json:"sender"`             // 发件人，可能是 "Name <addr>" 或裸地址
	Subject     string       `json:"subject"`            // 邮件主题
	Body        string       `json:"body"`               // 正文内容
	Attachments []Attachment `json:"attachments,omitempty"`
	Date        string       `json:"date,omitempty"` // 原始日期字符串，可选
}

// Attachment 表示邮件附件的元信息。
//
// 附件内容不随 Message 流转，需要时通过传输层按 AttachmentID 下载。
type Attachment struct {
	Filename     string `json:"filename"`     // 文件名
	MimeType     string `json:"mimeType"`     // MIME类型
	Size         int64  `json:"size"`         // 大小（字节）
	AttachmentID string `json:"attachmentId"` // 传输层附件标识，下载时使用
}
