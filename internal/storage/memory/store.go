package memory

import (
	"context"
	"sort"
	"sync"

	"mailagent/backend/internal/domain"
	"mailagent/backend/internal/storage"
)

// Store 使用内存保存审计数据，主要用于开发验证与测试。
type Store struct {
	mu           sync.RWMutex
	workflowLogs []domain.WorkflowLogEntry          // 只追加
	tasks        map[string]*domain.Task            // taskID -> task
	history      map[string]*domain.ProcessedEmail  // messageID -> record
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		workflowLogs: make([]domain.WorkflowLogEntry, 0),
		tasks:        make(map[string]*domain.Task),
		history:      make(map[string]*domain.ProcessedEmail),
	}
}

// AppendWorkflowLog 追加一条动作审计日志。
func (s *Store) AppendWorkflowLog(_ context.Context, entry *domain.WorkflowLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workflowLogs = append(s.workflowLogs, *entry)
	return nil
}

// ListWorkflowLogs 按时间倒序返回最多 limit 条审计日志。
func (s *Store) ListWorkflowLogs(_ context.Context, limit int) ([]domain.WorkflowLogEntry, error) {
	if limit < 1 {
		return nil, storage.ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.WorkflowLogEntry, len(s.workflowLogs))
	copy(result, s.workflowLogs)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// UpsertTask 保存任务记录，相同 TaskID 覆盖旧值。
func (s *Store) UpsertTask(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *task
	s.tasks[task.TaskID] = &clone
	return nil
}

// GetTask 按 TaskID 查询任务，未命中返回 ErrTaskNotFound。
func (s *Store) GetTask(_ context.Context, taskID string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, storage.ErrTaskNotFound
	}
	clone := *task
	return &clone, nil
}

// ListTasks 按创建时间倒序返回任务，可按状态过滤。
func (s *Store) ListTasks(_ context.Context, status *domain.TaskStatus) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		if status != nil && task.Status != *status {
			continue
		}
		result = append(result, *task)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// UpsertProcessedEmail 保存邮件处理记录，相同 MessageID 覆盖旧值。
func (s *Store) UpsertProcessedEmail(_ context.Context, rec *domain.ProcessedEmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *rec
	s.history[rec.MessageID] = &clone
	return nil
}

// ListHistory 按处理时间倒序返回最多 limit 条历史记录。
func (s *Store) ListHistory(_ context.Context, limit int) ([]domain.ProcessedEmail, error) {
	if limit < 1 {
		return nil, storage.ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.ProcessedEmail, 0, len(s.history))
	for _, rec := range s.history {
		result = append(result, *rec)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Close 关闭存储（内存实现无需清理）。
func (s *Store) Close() error {
	return nil
}

// Health 健康检查（内存实现恒健康）。
func (s *Store) Health(_ context.Context) error {
	return nil
}
