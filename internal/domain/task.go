package domain

import "time"

// TaskStatus 表示任务的生命周期状态。
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Valid 判断任务状态是否为合法枚举值。
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// Task 表示由 create_task 动作派生出的任务记录。
//
// 调度器只会以 pending 状态创建任务，后续状态流转由外部任务系统负责。
type Task struct {
	TaskID          string     `json:"taskId" gorm:"primaryKey;type:varchar(64)"`
	Title           string     `json:"title" gorm:"type:varchar(500);not null"`
	Description     string     `json:"description" gorm:"type:text"`
	Priority        Priority   `json:"priority" gorm:"type:varchar(16);not null"`
	ClientName      string     `json:"clientName,omitempty" gorm:"type:varchar(255)"`
	SourceMessageID string     `json:"sourceMessageId" gorm:"type:varchar(64);index;not null"`
	Status          TaskStatus `json:"status" gorm:"type:varchar(16);default:pending"`
	CreatedAt       time.Time  `json:"createdAt"`
}
