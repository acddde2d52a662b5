package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mailagent/backend/internal/config"
	"mailagent/backend/internal/domain"
	"mailagent/backend/internal/mail"
	"mailagent/backend/internal/monitoring"
	"mailagent/backend/internal/storage"
)

// Classifier 定义邮件决策能力。
type Classifier interface {
	Classify(ctx context.Context, msg domain.Message) domain.Decision
}

// Dispatcher 定义按决策执行工作流动作的能力。
type Dispatcher interface {
	Execute(ctx context.Context, msg domain.Message, decision domain.Decision) (*domain.ExecutionResult, error)
}

// DedupCache 定义已处理邮件的去重查询与标记。
//
// 实现允许不可靠：查询失败按未处理对待，标记失败静默忽略。
type DedupCache interface {
	Seen(ctx context.Context, messageID string) bool
	Mark(ctx context.Context, messageID string)
}

// ProcessOutcome 汇总单封邮件的完整处理结果。
type ProcessOutcome struct {
	Message   domain.Message          `json:"message"`
	Decision  domain.Decision         `json:"decision"`
	Execution *domain.ExecutionResult `json:"execution"`
}

// RunSummary 汇总一次批处理的整体结果。
type RunSummary struct {
	Fetched   int              `json:"fetched"`
	Processed int              `json:"processed"`
	Skipped   int              `json:"skipped"`
	Failed    int              `json:"failed"`
	Outcomes  []ProcessOutcome `json:"outcomes"`
}

// Agent 是邮件处理流水线的编排入口。
//
// 单封处理路径: 分类 -> 写处理历史 -> 执行工作流动作 -> 回写完成标记。
// 批处理路径在此之上加拉取、去重和并发控制。
type Agent struct {
	cfg        config.AgentConfig
	classifier Classifier
	dispatcher Dispatcher
	fetcher    mail.Fetcher
	store      storage.Store
	dedup      DedupCache // 可为 nil，表示不启用去重
	metrics    *monitoring.Metrics
	log        *zap.Logger
}

// NewAgent 创建流水线编排服务。
func NewAgent(
	cfg config.AgentConfig,
	classifier Classifier,
	dispatcher Dispatcher,
	fetcher mail.Fetcher,
	store storage.Store,
	dedup DedupCache,
	metrics *monitoring.Metrics,
	log *zap.Logger,
) *Agent {
	return &Agent{
		cfg:        cfg,
		classifier: classifier,
		dispatcher: dispatcher,
		fetcher:    fetcher,
		store:      store,
		dedup:      dedup,
		metrics:    metrics,
		log:        log,
	}
}

// ProcessMessage 对单封邮件执行完整的分类加工作流流水线。
//
// 处理历史按邮件ID幂等覆盖：先以未完成状态落一条决策快照，
// 动作全部执行完后回写完成标记。审计存储失败向上传播。
func (a *Agent) ProcessMessage(ctx context.Context, msg domain.Message) (*ProcessOutcome, error) {
	start := time.Now()

	if msg.ID == "" {
		msg.ID = "msg_" + uuid.NewString()
	}

	decision := a.classifier.Classify(ctx, msg)
	a.metrics.RecordClassification(string(decision.Intent), string(decision.Priority))

	rec := buildHistoryRecord(msg, decision)
	if err := a.store.UpsertProcessedEmail(ctx, rec); err != nil {
		a.metrics.RecordError("persistence", "agent")
		return nil, fmt.Errorf("failed to record processing history: %w", err)
	}

	execution, err := a.dispatcher.Execute(ctx, msg, decision)
	if err != nil {
		a.metrics.RecordError("persistence", "workflow")
		return nil, err
	}

	for _, r := range execution.ActionsExecuted {
		a.metrics.RecordAction(string(r.Action), r.Status)
	}
	for _, r := range execution.ActionsFailed {
		a.metrics.RecordAction(string(r.Action), r.Status)
	}

	rec.Processed = true
	if err := a.store.UpsertProcessedEmail(ctx, rec); err != nil {
		a.metrics.RecordError("persistence", "agent")
		return nil, fmt.Errorf("failed to finalize processing history: %w", err)
	}

	a.metrics.RecordProcessingTime(time.Since(start))
	a.log.Info("message processed",
		zap.String("messageId", msg.ID),
		zap.String("intent", string(decision.Intent)),
		zap.Int("executed", len(execution.ActionsExecuted)),
		zap.Int("failed", len(execution.ActionsFailed)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &ProcessOutcome{
		Message:   msg,
		Decision:  decision,
		Execution: execution,
	}, nil
}

// Run 拉取一批邮件并发处理。
//
// limit 非正时使用配置的默认拉取上限。已处理邮件（去重缓存命中）
// 跳过；单封处理失败只计入失败数，不中断整批。
func (a *Agent) Run(ctx context.Context, limit int) (*RunSummary, error) {
	if limit <= 0 {
		limit = a.cfg.FetchLimit
	}

	messages, err := a.fetcher.Fetch(ctx, limit)
	if err != nil {
		a.metrics.RecordError("transport", "agent")
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	summary := &RunSummary{
		Fetched:  len(messages),
		Outcomes: []ProcessOutcome{},
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxConcurrency)

	for _, msg := range messages {
		if a.dedup != nil && msg.ID != "" && a.dedup.Seen(ctx, msg.ID) {
			a.log.Debug("message already processed, skipping",
				zap.String("messageId", msg.ID),
			)
			summary.Skipped++
			continue
		}

		msg := msg
		g.Go(func() error {
			outcome, err := a.ProcessMessage(gctx, msg)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.log.Error("message processing failed",
					zap.String("messageId", msg.ID),
					zap.Error(err),
				)
				summary.Failed++
				return nil // 单封失败不取消整批
			}

			summary.Processed++
			summary.Outcomes = append(summary.Outcomes, *outcome)
			if a.dedup != nil {
				a.dedup.Mark(ctx, outcome.Message.ID)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}

	a.metrics.RecordBatchRun(summary.Processed, summary.Skipped, summary.Failed)
	a.log.Info("batch run finished",
		zap.Int("fetched", summary.Fetched),
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)

	return summary, nil
}

// buildHistoryRecord 从邮件和决策构造处理历史记录。
func buildHistoryRecord(msg domain.Message, decision domain.Decision) *domain.ProcessedEmail {
	snapshot, err := json.Marshal(decision)
	if err != nil {
		snapshot = []byte("{}")
	}

	actions := make([]string, 0, len(decision.WorkflowActions))
	for _, a := range decision.WorkflowActions {
		actions = append(actions, string(a))
	}

	return &domain.ProcessedEmail{
		MessageID:       msg.ID,
		Sender:          msg.Sender,
		Subject:         msg.Subject,
		Intent:          decision.Intent,
		Priority:        decision.Priority,
		DecisionJSON:    string(snapshot),
		WorkflowActions: strings.Join(actions, ","),
		Processed:       false,
		Timestamp:       time.Now().UTC(),
	}
}
