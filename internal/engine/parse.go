package engine

import (
	"encoding/json"
	"strings"

	"mailagent/backend/internal/domain"
)

// rawDecision 远程响应的宽松中间形态。
//
// 字段全部可缺失、可错型，逐字段校验后才转成 domain.Decision；
// 未经校验的原始输出不允许离开本包。
type rawDecision struct {
	Intent    string `json:"intent"`
	Priority  string `json:"priority"`
	Entities  struct {
		ClientName        *string  `json:"client_name"`
		RequestType       string   `json:"request_type"`
		UrgencyIndicators []string `json:"urgency_indicators"`
		Deadline          *string  `json:"deadline"`
	} `json:"entities"`
	Reasoning       string      `json:"reasoning"`
	WorkflowActions []string    `json:"workflow_actions"`
	Confidence      interface{} `json:"confidence"` // 可能是数值、字符串或缺失
}

// parseDecision 从远程响应文本解析决策。
//
// 解析失败返回错误，由调用方转入规则回退；解析成功时
// 逐字段套用默认值修正，绝不原样透传非法枚举。
func parseDecision(response string) (domain.Decision, error) {
	cleaned := extractJSON(response)

	var raw rawDecision
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return domain.Decision{}, err
	}

	confidence := domain.DefaultConfidence
	if v, ok := raw.Confidence.(float64); ok {
		confidence = domain.ClampConfidence(v)
	}

	actions := make([]domain.WorkflowAction, 0, len(raw.WorkflowActions))
	for _, a := range raw.WorkflowActions {
		actions = append(actions, domain.WorkflowAction(a))
	}

	decision := domain.Decision{
		Intent:   domain.ParseIntent(raw.Intent),
		Priority: domain.ParsePriority(raw.Priority),
		Entities: domain.Entities{
			ClientName:        raw.Entities.ClientName,
			RequestType:       raw.Entities.RequestType,
			UrgencyIndicators: raw.Entities.UrgencyIndicators,
			Deadline:          raw.Entities.Deadline,
		},
		Reasoning:       raw.Reasoning,
		WorkflowActions: actions,
		Confidence:      confidence,
	}

	return decision, nil
}

// extractJSON 从响应文本中提取 JSON 对象。
//
// 先剥离 markdown 代码块包装，再取首个 '{' 到末个 '}' 之间的
// 最大跨度（贪婪匹配）。找不到对象时原样返回，交给 JSON 解析报错。
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = response[len("```json"):]
	} else if strings.HasPrefix(response, "```") {
		response = response[len("```"):]
	}
	if strings.HasSuffix(response, "```") {
		response = response[:len(response)-len("```")]
	}
	response = strings.TrimSpace(response)

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		return response[start : end+1]
	}

	return response
}
