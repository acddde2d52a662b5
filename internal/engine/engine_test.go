package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailagent/backend/internal/domain"
	"mailagent/backend/internal/llm"
)

func newTestEngine(completer llm.Completer) *Engine {
	return New(completer, zap.NewNop())
}

func TestClassify_RemoteSuccess(t *testing.T) {
	stub := &llm.Stub{Response: `{
		"intent": "reply",
		"priority": "high",
		"entities": {
			"client_name": "Jane Doe",
			"request_type": "support",
			"urgency_indicators": ["asap"],
			"deadline": "2026-09-05"
		},
		"reasoning": "customer asks for help",
		"workflow_actions": ["reply", "create_task"],
		"confidence": 0.92
	}`}

	e := newTestEngine(stub)
	d := e.Classify(context.Background(), domain.Message{ID: "m1", Sender: "jane@x.com", Subject: "Help", Body: "please help asap"})

	assert.Equal(t, domain.IntentReply, d.Intent)
	assert.Equal(t, domain.PriorityHigh, d.Priority)
	assert.Equal(t, 0.92, d.Confidence)
	require.NotNil(t, d.Entities.ClientName)
	assert.Equal(t, "Jane Doe", *d.Entities.ClientName)
	require.NotNil(t, d.Entities.Deadline)
	assert.Equal(t, "2026-09-05", *d.Entities.Deadline)
	assert.Equal(t, []domain.WorkflowAction{domain.ActionReply, domain.ActionCreateTask}, d.WorkflowActions)
	assert.False(t, d.Timestamp.IsZero())
}

func TestClassify_MarkdownFencedResponse(t *testing.T) {
	stub := &llm.Stub{Response: "```json\n{\"intent\": \"create_task\", \"priority\": \"high\", \"workflow_actions\": [\"create_task\"], \"confidence\": 0.85}\n```"}

	e := newTestEngine(stub)
	d := e.Classify(context.Background(), domain.Message{ID: "m2", Sender: "a@b.c"})

	assert.Equal(t, domain.IntentCreateTask, d.Intent)
	assert.Equal(t, domain.PriorityHigh, d.Priority)
	assert.Equal(t, 0.85, d.Confidence)
}

func TestClassify_InvalidFieldsCorrected(t *testing.T) {
	t.Run("非法枚举值归为默认", func(t *testing.T) {
		stub := &llm.Stub{Response: `{"intent": "forward", "priority": "extreme", "confidence": 7}`}

		e := newTestEngine(stub)
		d := e.Classify(context.Background(), domain.Message{ID: "m3", Sender: "a@b.c"})

		assert.Equal(t, domain.IntentIgnore, d.Intent)
		assert.Equal(t, domain.PriorityMedium, d.Priority)
		assert.Equal(t, domain.DefaultConfidence, d.Confidence)
	})

	t.Run("非数值置信度替换为默认", func(t *testing.T) {
		stub := &llm.Stub{Response: `{"intent": "reply", "priority": "low", "confidence": "very sure"}`}

		e := newTestEngine(stub)
		d := e.Classify(context.Background(), domain.Message{ID: "m4", Sender: "a@b.c"})

		assert.Equal(t, domain.IntentReply, d.Intent)
		assert.Equal(t, domain.DefaultConfidence, d.Confidence)
	})

	t.Run("缺失字段填充默认", func(t *testing.T) {
		stub := &llm.Stub{Response: `{"intent": "summarize"}`}

		e := newTestEngine(stub)
		d := e.Classify(context.Background(), domain.Message{ID: "m5", Sender: "a@b.c"})

		assert.Equal(t, domain.IntentSummarize, d.Intent)
		assert.Equal(t, domain.PriorityMedium, d.Priority)
		assert.Equal(t, domain.DefaultConfidence, d.Confidence)
		assert.Equal(t, "No reasoning provided", d.Reasoning)
		assert.NotNil(t, d.Entities.UrgencyIndicators)
		assert.Empty(t, d.WorkflowActions)
	})
}

func TestClassify_GarbageFallsBack(t *testing.T) {
	stub := &llm.Stub{Response: "I'm sorry, I can't produce JSON today."}

	e := newTestEngine(stub)
	d := e.Classify(context.Background(), domain.Message{
		ID:      "m6",
		Sender:  "jane@x.com",
		Subject: "urgent request",
		Body:    "please respond",
	})

	// 回退路径命中 urgent 关键词组
	assert.Equal(t, domain.IntentReply, d.Intent)
	assert.Equal(t, domain.PriorityUrgent, d.Priority)
	assert.Equal(t, domain.FallbackConfidence, d.Confidence)
}

func TestClassify_AlwaysValidEnums(t *testing.T) {
	// 无论远程服务返回什么，输出枚举必须合法
	responses := []string{
		"",
		"{}",
		`{"intent": 42}`,
		`{"intent": "reply", "priority": null, "confidence": -3}`,
		"```\nnot json\n```",
	}

	for _, resp := range responses {
		var completer llm.Completer
		if resp == "" {
			completer = &llm.Stub{Err: llm.ErrCompletion}
		} else {
			completer = &llm.Stub{Response: resp}
		}

		e := newTestEngine(completer)
		d := e.Classify(context.Background(), domain.Message{ID: "m", Sender: "a@b.c", Subject: "hi", Body: "hello"})

		assert.True(t, d.Intent.Valid(), "intent for response %q", resp)
		assert.True(t, d.Priority.Valid(), "priority for response %q", resp)
		assert.GreaterOrEqual(t, d.Confidence, 0.0)
		assert.LessOrEqual(t, d.Confidence, 1.0)
	}
}

func TestGenerateReply_RemoteSuccess(t *testing.T) {
	stub := &llm.Stub{Response: "  Thanks for reaching out, we are on it.  \n"}

	e := newTestEngine(stub)
	reply := e.GenerateReply(context.Background(), domain.Message{ID: "m7", Subject: "Hello"}, domain.Decision{})

	assert.Equal(t, "Thanks for reaching out, we are on it.", reply)
}

func TestGenerateReply_TemplateFallback(t *testing.T) {
	e := newTestEngine(&llm.Stub{Err: llm.ErrCompletion})

	name := "Jane Doe"
	msg := domain.Message{ID: "m8", Subject: "Project Update"}
	decision := domain.Decision{Entities: domain.Entities{ClientName: &name}}

	reply := e.GenerateReply(context.Background(), msg, decision)

	assert.True(t, strings.HasPrefix(reply, "Hi Jane Doe,"))
	assert.Contains(t, reply, `"Project Update"`)
	assert.Contains(t, reply, "Best regards,")

	// 确定性：重复调用产生相同文本
	again := e.GenerateReply(context.Background(), msg, decision)
	assert.Equal(t, reply, again)
}

func TestGenerateReply_TemplateDefaults(t *testing.T) {
	e := newTestEngine(&llm.Stub{Err: llm.ErrCompletion})

	reply := e.GenerateReply(context.Background(), domain.Message{ID: "m9"}, domain.Decision{})

	assert.True(t, strings.HasPrefix(reply, "Hi there,"))
	assert.Contains(t, reply, `"your request"`)
}
