package domain

import "time"

// ActionStatus 表示一次动作尝试的结果状态。
type ActionStatus string

const (
	ActionStatusSuccess ActionStatus = "success"
	ActionStatusFailed  ActionStatus = "failed"
)

// WorkflowLogEntry 是一条只追加的动作审计记录。
//
// 每次动作尝试写一条，失败也写；写入后永不更新或删除。
type WorkflowLogEntry struct {
	ID            string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MessageID     string         `json:"messageId" gorm:"type:varchar(64);index;not null"`
	ActionType    WorkflowAction `json:"actionType" gorm:"type:varchar(32);not null"`
	ActionDetails string         `json:"actionDetails" gorm:"type:text"` // JSON 负载，结构不透明
	Status        ActionStatus   `json:"status" gorm:"type:varchar(16);not null"`
	Timestamp     time.Time      `json:"timestamp" gorm:"index"`
	ErrorMessage  string         `json:"errorMessage,omitempty" gorm:"type:text"`
}

// ProcessedEmail 记录单封邮件的分类处理结果，按邮件ID幂等覆盖。
type ProcessedEmail struct {
	MessageID       string    `json:"messageId" gorm:"primaryKey;type:varchar(64)"`
	Sender          string    `json:"sender" gorm:"type:varchar(255);not null"`
	Subject         string    `json:"subject" gorm:"type:varchar(500)"`
	Intent          Intent    `json:"intent" gorm:"type:varchar(16);not null"`
	Priority        Priority  `json:"priority" gorm:"type:varchar(16);not null"`
	DecisionJSON    string    `json:"decision" gorm:"type:text"` // 完整决策的 JSON 快照
	WorkflowActions string    `json:"workflowActions" gorm:"type:varchar(255)"`
	Processed       bool      `json:"processed" gorm:"default:false"`
	Timestamp       time.Time `json:"timestamp" gorm:"index"`
}
