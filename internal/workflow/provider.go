package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailagent/backend/internal/domain"
)

// TaskProvider 定义外部任务系统的尽力而为投递接口。
//
// 调用只许返回一个不透明的外部任务ID，不许失败：
// 外部系统不可达时投递静默丢弃，本地任务记录仍是事实来源。
type TaskProvider interface {
	CreateTask(ctx context.Context, task domain.Task) string
}

// ExternalProvider 面向 notion / trello / clickup 的投递实现。
//
// 当前为模拟投递：生成外部ID并记录日志。真实接入时替换
// CreateTask 内部为对应 API 调用，失败策略保持不变。
type ExternalProvider struct {
	provider string
	log      *zap.Logger
}

// NewExternalProvider 创建外部任务系统投递器。
func NewExternalProvider(provider string, log *zap.Logger) *ExternalProvider {
	return &ExternalProvider{
		provider: provider,
		log:      log,
	}
}

// CreateTask 向外部任务系统投递任务，返回外部任务ID。
func (p *ExternalProvider) CreateTask(_ context.Context, task domain.Task) string {
	externalID := fmt.Sprintf("%s_%s", p.provider, uuid.NewString())

	p.log.Info("task delivered to external provider",
		zap.String("provider", p.provider),
		zap.String("external_task_id", externalID),
		zap.String("title", task.Title),
		zap.String("priority", string(task.Priority)),
	)

	return externalID
}
