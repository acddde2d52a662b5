package engine

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"mailagent/backend/internal/domain"
)

// fallbackRule 规则回退的单条关键词规则。
type fallbackRule struct {
	keywords []string
	intent   domain.Intent
	priority domain.Priority
	actions  []domain.WorkflowAction
}

// fallbackRules 按优先级排列的关键词规则，首个命中即生效。
//
// 顺序是契约的一部分：同时包含 "urgent" 与 "meeting" 的邮件
// 必须命中第二条而非第三条。
var fallbackRules = []fallbackRule{
	{
		keywords: []string{"update", "status", "progress"},
		intent:   domain.IntentSummarize,
		priority: domain.PriorityMedium,
		actions:  []domain.WorkflowAction{domain.ActionCreateTask},
	},
	{
		keywords: []string{"urgent", "asap", "immediately", "critical"},
		intent:   domain.IntentReply,
		priority: domain.PriorityUrgent,
		actions:  []domain.WorkflowAction{domain.ActionReply, domain.ActionCreateTask},
	},
	{
		keywords: []string{"meeting", "call", "schedule"},
		intent:   domain.IntentCreateTask,
		priority: domain.PriorityHigh,
		actions:  []domain.WorkflowAction{domain.ActionCreateTask},
	},
	{
		keywords: []string{"question", "help", "support"},
		intent:   domain.IntentReply,
		priority: domain.PriorityMedium,
		actions:  []domain.WorkflowAction{domain.ActionReply},
	},
}

// fallbackClassify 规则回退分类。
//
// 对相同输入逐字节可复现：小写化主题+正文拼接后按固定顺序扫描
// 关键词组，首个命中决定意图/优先级/动作；置信度固定 0.7，
// 恒低于正常远程分类结果，供下游区分来源。
func (e *Engine) fallbackClassify(msg domain.Message) domain.Decision {
	text := strings.ToLower(msg.Subject) + strings.ToLower(msg.Body)

	intent := domain.IntentIgnore
	priority := domain.PriorityMedium
	actions := []domain.WorkflowAction{}
	indicators := []string{}

	for _, rule := range fallbackRules {
		matched := keywordsFound(text, rule.keywords)
		if len(matched) == 0 {
			continue
		}
		intent = rule.intent
		priority = rule.priority
		actions = rule.actions
		indicators = matched
		break
	}

	requestType := "task_request"
	if intent == domain.IntentReply {
		requestType = "general_inquiry"
	}

	decision := domain.Decision{
		Intent:   intent,
		Priority: priority,
		Entities: domain.Entities{
			ClientName:        clientNameFromSender(msg.Sender),
			RequestType:       requestType,
			UrgencyIndicators: indicators,
			Deadline:          nil,
		},
		Reasoning:       fmt.Sprintf("Rule-based analysis: detected intent %q based on keywords", intent),
		WorkflowActions: actions,
		Confidence:      domain.FallbackConfidence,
		Timestamp:       time.Now().UTC(),
	}
	decision.Normalize()

	e.log.Info("rule-based analysis completed",
		zap.String("message_id", msg.ID),
		zap.String("intent", string(intent)),
	)

	return decision
}

// keywordsFound 按声明顺序返回文本中出现的关键词。
func keywordsFound(text string, keywords []string) []string {
	found := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// clientNameFromSender 从发件人地址推导客户名称。
//
// 仅当地址包含 '@' 时取本地部分，点替换为空格后逐词首字母大写：
// "jane.doe@example.com" → "Jane Doe"。否则返回 nil。
func clientNameFromSender(sender string) *string {
	if !strings.Contains(sender, "@") {
		return nil
	}
	local := sender[:strings.Index(sender, "@")]
	name := titleCase(strings.ReplaceAll(local, ".", " "))
	return &name
}

// titleCase 将每个空格分隔的单词改为首字母大写、其余小写。
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
