package storage

import (
	"context"
	"errors"

	"mailagent/backend/internal/domain"
)

var (
	// ErrTaskNotFound 任务未找到错误
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidLimit 查询数量参数非法错误
	ErrInvalidLimit = errors.New("limit must be a positive integer")
)

// WorkflowLogRepository 定义动作审计日志存取操作。
//
// 日志只追加：重复执行同一动作产生独立的新记录，永不覆盖。
type WorkflowLogRepository interface {
	AppendWorkflowLog(ctx context.Context, entry *domain.WorkflowLogEntry) error
	ListWorkflowLogs(ctx context.Context, limit int) ([]domain.WorkflowLogEntry, error)
}

// TaskRepository 定义任务记录存取操作。
//
// UpsertTask 对相同 TaskID 幂等：覆盖而非重复插入。
// GetTask 未命中时返回 ErrTaskNotFound。
type TaskRepository interface {
	UpsertTask(ctx context.Context, task *domain.Task) error
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	ListTasks(ctx context.Context, status *domain.TaskStatus) ([]domain.Task, error)
}

// HistoryRepository 定义邮件处理历史存取操作。
//
// UpsertProcessedEmail 对相同 MessageID 幂等：覆盖而非重复插入。
type HistoryRepository interface {
	UpsertProcessedEmail(ctx context.Context, rec *domain.ProcessedEmail) error
	ListHistory(ctx context.Context, limit int) ([]domain.ProcessedEmail, error)
}

// Store 定义完整的审计存储接口。
//
// 存储层失败是本系统唯一向调用方传播的错误类别：
// 审计轨迹写不进去时不允许静默继续。
type Store interface {
	WorkflowLogRepository
	TaskRepository
	HistoryRepository

	// 工具方法
	Close() error
	Health(ctx context.Context) error
}
