package httptransport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailagent/backend/internal/domain"
	"mailagent/backend/internal/monitoring"
	"mailagent/backend/internal/service"
	"mailagent/backend/internal/storage"
)

// 列表查询的默认和最大返回条数
const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Handler 聚合所有 HTTP 处理逻辑。
type Handler struct {
	agent  *service.Agent
	store  storage.Store
	health *monitoring.HealthChecker
	log    *zap.Logger
}

// NewHandler 创建 HTTP 处理器。
func NewHandler(agent *service.Agent, store storage.Store, health *monitoring.HealthChecker, log *zap.Logger) *Handler {
	return &Handler{
		agent:  agent,
		store:  store,
		health: health,
		log:    log,
	}
}

// processEmail 处理单封提交的邮件：分类并执行工作流动作。
func (h *Handler) processEmail(c *gin.Context) {
	var msg domain.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		BadRequest(c, "无效的请求参数")
		return
	}
	if msg.Sender == "" {
		BadRequest(c, "sender 不能为空")
		return
	}

	outcome, err := h.agent.ProcessMessage(c.Request.Context(), msg)
	if err != nil {
		h.log.Error("process email failed",
			zap.String("messageId", msg.ID),
			zap.Error(err),
		)
		InternalError(c, "邮件处理失败")
		return
	}

	Success(c, outcome)
}

// runAgent 触发一次批处理：拉取邮件并依次处理。
func (h *Handler) runAgent(c *gin.Context) {
	var input struct {
		MaxEmails int `json:"max_emails"`
	}
	// 请求体可选，解析失败按默认参数执行
	_ = c.ShouldBindJSON(&input)

	summary, err := h.agent.Run(c.Request.Context(), input.MaxEmails)
	if err != nil {
		h.log.Error("batch run failed", zap.Error(err))
		InternalError(c, "批处理执行失败")
		return
	}

	Success(c, summary)
}

// listHistory 查询最近的邮件处理历史。
func (h *Handler) listHistory(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	history, err := h.store.ListHistory(c.Request.Context(), limit)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidLimit) {
			BadRequest(c, "limit 必须为正整数")
			return
		}
		InternalError(c, "获取处理历史失败")
		return
	}

	Success(c, history)
}

// listTasks 查询任务列表，支持按状态过滤。
func (h *Handler) listTasks(c *gin.Context) {
	var status *domain.TaskStatus
	if s := c.Query("status"); s != "" {
		ts := domain.TaskStatus(s)
		if !ts.Valid() {
			BadRequest(c, "无效的任务状态: "+s)
			return
		}
		status = &ts
	}

	tasks, err := h.store.ListTasks(c.Request.Context(), status)
	if err != nil {
		InternalError(c, "获取任务列表失败")
		return
	}

	Success(c, tasks)
}

// getTask 按 ID 查询单个任务。
func (h *Handler) getTask(c *gin.Context) {
	taskID := c.Param("id")

	task, err := h.store.GetTask(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, storage.ErrTaskNotFound) {
			NotFound(c, "任务不存在: "+taskID)
			return
		}
		InternalError(c, "获取任务失败")
		return
	}

	Success(c, task)
}

// listWorkflowLogs 查询最近的动作审计日志。
func (h *Handler) listWorkflowLogs(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	logs, err := h.store.ListWorkflowLogs(c.Request.Context(), limit)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidLimit) {
			BadRequest(c, "limit 必须为正整数")
			return
		}
		InternalError(c, "获取审计日志失败")
		return
	}

	Success(c, logs)
}

// healthz 健康检查端点。
func (h *Handler) healthz(c *gin.Context) {
	results, healthy := h.health.CheckHealth(c.Request.Context())
	if !healthy {
		c.JSON(http.StatusServiceUnavailable, Response{
			Code: CodeInternalError,
			Msg:  "服务不可用",
			Data: results,
		})
		return
	}
	Success(c, results)
}

// parseLimit 解析 limit 查询参数，非法时直接写 400 响应。
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("limit", strconv.Itoa(defaultListLimit))
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		BadRequest(c, "limit 必须为正整数")
		return 0, false
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, true
}
