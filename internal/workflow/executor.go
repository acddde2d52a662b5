package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailagent/backend/internal/config"
	"mailagent/backend/internal/domain"
	"mailagent/backend/internal/mail"
	"mailagent/backend/internal/storage"
)

const (
	// taskSubjectLimit 任务标题中邮件主题的最大保留长度
	taskSubjectLimit = 50
	// taskBodyLimit 任务描述中邮件正文的最大保留长度
	taskBodyLimit = 500
	// replyPreviewLimit 审计日志中回复正文预览的最大长度
	replyPreviewLimit = 100
)

// ErrNoRecipient 无法从发件人字段提取有效回信地址
var ErrNoRecipient = errors.New("could not extract valid email address from sender")

// ReplyGenerator 定义回复正文生成能力。
//
// 实现必须是全函数：任何输入都返回可用正文，不返回错误。
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, msg domain.Message, decision domain.Decision) string
}

// persistErr 标记审计存储写入失败。
//
// 这是唯一需要中断当前邮件处理并向上传播的错误类别，
// 其余动作失败都在动作粒度内吸收。
type persistErr struct {
	err error
}

func (e *persistErr) Error() string { return e.err.Error() }
func (e *persistErr) Unwrap() error { return e.err }

// Executor 按决策逐个执行工作流动作并落审计记录。
//
// 动作之间相互隔离：单个动作失败记入失败列表后继续执行后续动作，
// 只有审计存储写入失败才会中断整封邮件的处理。
type Executor struct {
	cfg            config.WorkflowConfig
	attachmentsDir string
	replies        ReplyGenerator
	sender         mail.Sender
	downloader     mail.Downloader
	store          storage.Store
	provider       TaskProvider
	log            *zap.Logger
}

// NewExecutor 创建工作流执行器。
func NewExecutor(
	cfg config.WorkflowConfig,
	attachmentsDir string,
	replies ReplyGenerator,
	sender mail.Sender,
	downloader mail.Downloader,
	store storage.Store,
	provider TaskProvider,
	log *zap.Logger,
) *Executor {
	return &Executor{
		cfg:            cfg,
		attachmentsDir: attachmentsDir,
		replies:        replies,
		sender:         sender,
		downloader:     downloader,
		store:          store,
		provider:       provider,
		log:            log,
	}
}

// Execute 对单封邮件执行决策中的全部工作流动作。
//
// 动作按决策中的顺序逐个执行，被配置开关禁用或未知的动作跳过。
// 每次动作尝试（无论成败）都写一条只追加的审计日志；
// 返回的汇总结果总是完整反映已执行和已失败的动作。
func (e *Executor) Execute(ctx context.Context, msg domain.Message, decision domain.Decision) (*domain.ExecutionResult, error) {
	result := &domain.ExecutionResult{
		MessageID:       msg.ID,
		ActionsExecuted: []domain.ActionResult{},
		ActionsFailed:   []domain.ActionResult{},
		Timestamp:       time.Now().UTC(),
	}

	for _, action := range decision.WorkflowActions {
		var (
			details map[string]interface{}
			err     error
		)

		switch {
		case action == domain.ActionReply && e.cfg.AutoReplyEnabled:
			details, err = e.executeReply(ctx, msg, decision)
		case action == domain.ActionCreateTask && e.cfg.AutoTaskCreationEnabled:
			details, err = e.executeCreateTask(ctx, msg, decision)
		case action == domain.ActionSaveAttachment && e.cfg.SaveAttachmentsEnabled:
			details, err = e.executeSaveAttachments(ctx, msg)
		default:
			e.log.Debug("workflow action skipped",
				zap.String("messageId", msg.ID),
				zap.String("action", string(action)),
			)
			continue
		}

		if err != nil {
			var pe *persistErr
			if errors.As(err, &pe) {
				return result, fmt.Errorf("workflow audit write failed: %w", pe.Unwrap())
			}

			e.log.Error("workflow action failed",
				zap.String("messageId", msg.ID),
				zap.String("action", string(action)),
				zap.Error(err),
			)
			result.ActionsFailed = append(result.ActionsFailed, domain.ActionResult{
				Action: action,
				Status: string(domain.ActionStatusFailed),
				Error:  err.Error(),
			})
			if logErr := e.logAction(ctx, msg.ID, action, map[string]interface{}{}, domain.ActionStatusFailed, err.Error()); logErr != nil {
				return result, fmt.Errorf("workflow audit write failed: %w", logErr)
			}
			continue
		}

		result.ActionsExecuted = append(result.ActionsExecuted, domain.ActionResult{
			Action:  action,
			Status:  string(domain.ActionStatusSuccess),
			Details: details,
		})
	}

	e.log.Info("workflow execution finished",
		zap.String("messageId", msg.ID),
		zap.Int("executed", len(result.ActionsExecuted)),
		zap.Int("failed", len(result.ActionsFailed)),
	)

	return result, nil
}

// executeReply 生成并发送自动回复。
func (e *Executor) executeReply(ctx context.Context, msg domain.Message, decision domain.Decision) (map[string]interface{}, error) {
	body := e.replies.GenerateReply(ctx, msg, decision)

	recipient := ExtractEmailAddress(msg.Sender)
	if recipient == "" {
		return nil, fmt.Errorf("%w: %q", ErrNoRecipient, msg.Sender)
	}

	subject := msg.Subject
	if !strings.HasPrefix(subject, "Re:") {
		subject = "Re: " + subject
	}

	if err := e.sender.Send(ctx, recipient, subject, body, msg.ThreadID); err != nil {
		return nil, err
	}

	details := map[string]interface{}{
		"recipient":    recipient,
		"subject":      subject,
		"body_preview": truncate(body, replyPreviewLimit),
	}
	if err := e.logAction(ctx, msg.ID, domain.ActionReply, details, domain.ActionStatusSuccess, ""); err != nil {
		return nil, err
	}

	e.log.Info("auto reply sent",
		zap.String("messageId", msg.ID),
		zap.String("recipient", recipient),
	)

	return details, nil
}

// executeCreateTask 从邮件和决策派生任务记录。
//
// 本地审计库是事实来源，写入失败向上传播；
// 外部任务系统投递是尽力而为，不影响动作结果。
func (e *Executor) executeCreateTask(ctx context.Context, msg domain.Message, decision domain.Decision) (map[string]interface{}, error) {
	clientName := "Unknown Client"
	if decision.Entities.ClientName != nil && *decision.Entities.ClientName != "" {
		clientName = *decision.Entities.ClientName
	}

	requestType := decision.Entities.RequestType
	if requestType == "" {
		requestType = "General Request"
	}

	title := fmt.Sprintf("%s: %s", humanizeRequestType(requestType), truncate(msg.Subject, taskSubjectLimit))
	description := fmt.Sprintf(
		"Email from: %s\nSubject: %s\nPriority: %s\nIntent: %s\n\nOriginal message:\n%s\n\nAnalysis: %s",
		msg.Sender,
		msg.Subject,
		strings.ToUpper(string(decision.Priority)),
		decision.Intent,
		truncate(msg.Body, taskBodyLimit),
		decision.Reasoning,
	)

	task := &domain.Task{
		TaskID:          "task_" + uuid.NewString(),
		Title:           title,
		Description:     description,
		Priority:        decision.Priority,
		ClientName:      clientName,
		SourceMessageID: msg.ID,
		Status:          domain.TaskStatusPending,
		CreatedAt:       time.Now().UTC(),
	}

	if err := e.store.UpsertTask(ctx, task); err != nil {
		return nil, &persistErr{err: err}
	}

	externalID := e.provider.CreateTask(ctx, *task)

	details := map[string]interface{}{
		"task_id":          task.TaskID,
		"external_task_id": externalID,
		"title":            task.Title,
		"priority":         string(task.Priority),
	}
	if err := e.logAction(ctx, msg.ID, domain.ActionCreateTask, details, domain.ActionStatusSuccess, ""); err != nil {
		return nil, err
	}

	e.log.Info("task created",
		zap.String("messageId", msg.ID),
		zap.String("taskId", task.TaskID),
		zap.String("title", task.Title),
	)

	return details, nil
}

// executeSaveAttachments 将邮件附件逐个落盘。
//
// 单个附件下载失败只跳过该附件，不影响其余附件，
// 附件为空时动作直接成功。
func (e *Executor) executeSaveAttachments(ctx context.Context, msg domain.Message) (map[string]interface{}, error) {
	savedFiles := []string{}

	for _, att := range msg.Attachments {
		if att.Filename == "" || att.AttachmentID == "" {
			continue
		}

		path, err := e.downloader.Download(ctx, msg.ID, att.AttachmentID, att.Filename, e.attachmentsDir)
		if err != nil {
			e.log.Warn("attachment download failed",
				zap.String("messageId", msg.ID),
				zap.String("filename", att.Filename),
				zap.Error(err),
			)
			continue
		}

		savedFiles = append(savedFiles, path)
		if err := e.logAction(ctx, msg.ID, domain.ActionSaveAttachment, map[string]interface{}{
			"filename": att.Filename,
			"path":     path,
		}, domain.ActionStatusSuccess, ""); err != nil {
			return nil, err
		}
	}

	e.log.Info("attachments saved",
		zap.String("messageId", msg.ID),
		zap.Int("count", len(savedFiles)),
	)

	return map[string]interface{}{
		"saved_files": savedFiles,
		"count":       len(savedFiles),
	}, nil
}

// logAction 写一条动作审计日志，写失败返回 persistErr。
func (e *Executor) logAction(ctx context.Context, messageID string, action domain.WorkflowAction, details map[string]interface{}, status domain.ActionStatus, errMsg string) error {
	payload, err := json.Marshal(details)
	if err != nil {
		payload = []byte("{}")
	}

	entry := &domain.WorkflowLogEntry{
		ID:            uuid.NewString(),
		MessageID:     messageID,
		ActionType:    action,
		ActionDetails: string(payload),
		Status:        status,
		Timestamp:     time.Now().UTC(),
		ErrorMessage:  errMsg,
	}

	if err := e.store.AppendWorkflowLog(ctx, entry); err != nil {
		return &persistErr{err: err}
	}
	return nil
}

// ExtractEmailAddress 从发件人字段中提取裸邮件地址。
//
// 支持 "Name <addr@host>" 和裸地址两种格式，
// 无法识别时返回空字符串。
func ExtractEmailAddress(sender string) string {
	if sender == "" {
		return ""
	}

	if i := strings.Index(sender, "<"); i >= 0 {
		rest := sender[i+1:]
		if j := strings.Index(rest, ">"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
		return ""
	}

	if strings.Contains(sender, "@") {
		return strings.TrimSpace(sender)
	}

	return ""
}

// humanizeRequestType 将下划线风格的请求类型转成可读标题。
//
// 例如 "task_request" -> "Task Request"。
func humanizeRequestType(requestType string) string {
	words := strings.Split(strings.ReplaceAll(requestType, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = strings.ToUpper(string(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// truncate 按字符数截断字符串，保证不切断多字节字符。
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
