package engine

import (
	"fmt"

	"mailagent/backend/internal/domain"
)

// 正文截断长度，控制提示词成本。按字符数截断，不做 token 级切分。
const (
	analysisBodyLimit = 1000
	replyBodyLimit    = 500
)

// analysisSystemPrompt 分类调用的系统提示词
const analysisSystemPrompt = "You are an expert email analysis assistant. Always respond with valid JSON only."

// replySystemPrompt 回复生成调用的系统提示词
const replySystemPrompt = "You are a professional email assistant. Write concise, courteous replies."

// buildAnalysisPrompt 构造结构化抽取提示词。
func buildAnalysisPrompt(msg domain.Message) string {
	return fmt.Sprintf(`Analyze the following email and provide a structured JSON response.

Email Details:
- From: %s
- Subject: %s
- Body: %s

Please analyze this email and respond with a JSON object containing:
1. "intent": One of ["reply", "summarize", "create_task", "ignore"]
2. "priority": One of ["low", "medium", "high", "urgent"]
3. "entities": Object with:
   - "client_name": Extracted client/contact name (or null)
   - "request_type": Type of request (e.g., "project_update", "meeting_request", "support", etc.)
   - "urgency_indicators": List of urgency keywords found
   - "deadline": Any mentioned deadline (or null)
4. "reasoning": Brief explanation of the decision
5. "workflow_actions": List of actions to take: ["reply", "create_task", "save_attachment", "none"]
6. "confidence": Confidence score between 0 and 1

Respond ONLY with valid JSON, no additional text.`,
		msg.Sender, msg.Subject, truncate(msg.Body, analysisBodyLimit))
}

// buildReplyPrompt 构造回复生成提示词。
func buildReplyPrompt(msg domain.Message, decision domain.Decision) string {
	clientName := "Unknown"
	if decision.Entities.ClientName != nil {
		clientName = *decision.Entities.ClientName
	}

	return fmt.Sprintf(`Generate a professional, concise email reply to the following email.

Original Email:
From: %s
Subject: %s
Body: %s

Context:
- Intent: %s
- Priority: %s
- Client: %s

Generate a professional reply that:
1. Acknowledges the email
2. Addresses the main request or question
3. Is concise and actionable
4. Maintains a professional tone

Reply text only, no subject line or headers.`,
		msg.Sender, msg.Subject, truncate(msg.Body, replyBodyLimit),
		decision.Intent, decision.Priority, clientName)
}

// truncate 按字符数截断字符串。截断点是固定字符数而非 token 数。
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
