package domain

import "time"

// Intent 表示分类器对邮件处置方式的判断。
type Intent string

const (
	IntentReply      Intent = "reply"
	IntentSummarize  Intent = "summarize"
	IntentCreateTask Intent = "create_task"
	IntentIgnore     Intent = "ignore"
)

// Valid 判断意图是否为合法枚举值。
func (i Intent) Valid() bool {
	switch i {
	case IntentReply, IntentSummarize, IntentCreateTask, IntentIgnore:
		return true
	}
	return false
}

// ParseIntent 解析意图字符串，非法值一律归为 ignore。
func ParseIntent(s string) Intent {
	if i := Intent(s); i.Valid() {
		return i
	}
	return IntentIgnore
}

// Priority 表示邮件处理优先级。
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid 判断优先级是否为合法枚举值。
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ParsePriority 解析优先级字符串，非法值一律归为 medium。
func ParsePriority(s string) Priority {
	if p := Priority(s); p.Valid() {
		return p
	}
	return PriorityMedium
}

// WorkflowAction 表示调度器可执行的一个副作用动作。
type WorkflowAction string

const (
	ActionReply          WorkflowAction = "reply"
	ActionCreateTask     WorkflowAction = "create_task"
	ActionSaveAttachment WorkflowAction = "save_attachment"
	ActionNone           WorkflowAction = "none"
)

// Valid 判断动作是否为合法枚举值。
func (a WorkflowAction) Valid() bool {
	switch a {
	case ActionReply, ActionCreateTask, ActionSaveAttachment, ActionNone:
		return true
	}
	return false
}

// DefaultConfidence 置信度缺失或越界时使用的固定替代值。
const DefaultConfidence = 0.8

// FallbackConfidence 规则回退路径的固定置信度，恒低于正常远程分类结果。
const FallbackConfidence = 0.7

// Entities 保存从邮件文本中抽取的结构化事实。
type Entities struct {
	ClientName        *string  `json:"client_name"`        // 客户/联系人名称，可能缺失
	RequestType       string   `json:"request_type"`       // 请求类型，如 "project_update"
	UrgencyIndicators []string `json:"urgency_indicators"` // 发现的紧急程度关键词
	Deadline          *string  `json:"deadline"`           // 提及的截止时间，可能缺失
}

// Decision 是分类器对单封邮件的结构化决策结果。
//
// 构造后 Intent 与 Priority 必为合法枚举值；任何未经 Normalize
// 校验的原始分类输出都不允许离开分类器边界。
type Decision struct {
	Intent          Intent           `json:"intent"`
	Priority        Priority         `json:"priority"`
	Entities        Entities         `json:"entities"`
	Reasoning       string           `json:"reasoning"`
	WorkflowActions []WorkflowAction `json:"workflow_actions"`
	Confidence      float64          `json:"confidence"`
	Timestamp       time.Time        `json:"timestamp"` // 决策构造时刻，只设置一次
}

// Normalize 对决策字段做统一校验修正。
//
// 成功解析与回退两条路径都必须经过这里：
//   - 非法/缺失 intent 归为 ignore，priority 归为 medium
//   - confidence 越界或非数值替换为 DefaultConfidence
//   - workflow_actions 去除非法值并按首次出现去重（顺序保留）
//   - reasoning 缺失时填充固定占位文本
//   - urgency_indicators 为 nil 时置为空列表
func (d *Decision) Normalize() {
	if !d.Intent.Valid() {
		d.Intent = IntentIgnore
	}
	if !d.Priority.Valid() {
		d.Priority = PriorityMedium
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		d.Confidence = DefaultConfidence
	}
	if d.Reasoning == "" {
		d.Reasoning = "No reasoning provided"
	}
	if d.Entities.UrgencyIndicators == nil {
		d.Entities.UrgencyIndicators = []string{}
	}

	seen := make(map[WorkflowAction]bool, len(d.WorkflowActions))
	actions := make([]WorkflowAction, 0, len(d.WorkflowActions))
	for _, a := range d.WorkflowActions {
		if !a.Valid() || seen[a] {
			continue
		}
		seen[a] = true
		actions = append(actions, a)
	}
	d.WorkflowActions = actions
}

// ClampConfidence 将任意置信度值修正到 [0,1]，越界替换为默认值。
func ClampConfidence(v float64) float64 {
	if v < 0 || v > 1 {
		return DefaultConfidence
	}
	return v
}

// ActionResult 记录单个动作的执行结果。
type ActionResult struct {
	Action  WorkflowAction         `json:"action"`
	Status  string                 `json:"status"` // "success" 或 "failed"
	Details map[string]interface{} `json:"details,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// ExecutionResult 是调度器对单封邮件执行全部动作后的汇总。
type ExecutionResult struct {
	MessageID       string         `json:"messageId"`
	ActionsExecuted []ActionResult `json:"actionsExecuted"`
	ActionsFailed   []ActionResult `json:"actionsFailed"`
	Timestamp       time.Time      `json:"timestamp"`
}
