package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailagent/backend/internal/domain"
	"mailagent/backend/internal/llm"
)

// newFallbackEngine 返回一个远程补全恒失败的引擎，强制走规则路径。
func newFallbackEngine() *Engine {
	return newTestEngine(&llm.Stub{Err: llm.ErrCompletion})
}

func TestFallbackClassify_KeywordRules(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		body     string
		intent   domain.Intent
		priority domain.Priority
		actions  []domain.WorkflowAction
	}{
		{
			name:     "进度类关键词",
			subject:  "Status?",
			body:     "need update",
			intent:   domain.IntentSummarize,
			priority: domain.PriorityMedium,
			actions:  []domain.WorkflowAction{domain.ActionCreateTask},
		},
		{
			name:     "紧急类关键词",
			subject:  "please reply ASAP",
			body:     "this is critical",
			intent:   domain.IntentReply,
			priority: domain.PriorityUrgent,
			actions:  []domain.WorkflowAction{domain.ActionReply, domain.ActionCreateTask},
		},
		{
			name:     "会议类关键词",
			subject:  "Let's schedule a call",
			body:     "next week?",
			intent:   domain.IntentCreateTask,
			priority: domain.PriorityHigh,
			actions:  []domain.WorkflowAction{domain.ActionCreateTask},
		},
		{
			name:     "咨询类关键词",
			subject:  "A question",
			body:     "I need some help with the invoice",
			intent:   domain.IntentReply,
			priority: domain.PriorityMedium,
			actions:  []domain.WorkflowAction{domain.ActionReply},
		},
		{
			name:     "无关键词命中",
			subject:  "Newsletter",
			body:     "monthly digest",
			intent:   domain.IntentIgnore,
			priority: domain.PriorityMedium,
			actions:  []domain.WorkflowAction{},
		},
	}

	e := newFallbackEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Classify(context.Background(), domain.Message{
				ID:      "m",
				Sender:  "someone@example.com",
				Subject: tt.subject,
				Body:    tt.body,
			})

			assert.Equal(t, tt.intent, d.Intent)
			assert.Equal(t, tt.priority, d.Priority)
			assert.Equal(t, tt.actions, d.WorkflowActions)
			assert.Equal(t, domain.FallbackConfidence, d.Confidence)
		})
	}
}

func TestFallbackClassify_RulePrecedence(t *testing.T) {
	// 同时包含 "urgent" 与 "meeting"：紧急规则先于会议规则命中
	e := newFallbackEngine()
	d := e.Classify(context.Background(), domain.Message{
		ID:      "m",
		Sender:  "a@b.c",
		Subject: "Hello",
		Body:    "urgent: we need a meeting",
	})

	assert.Equal(t, domain.IntentReply, d.Intent)
	assert.Equal(t, domain.PriorityUrgent, d.Priority)
}

func TestFallbackClassify_Deterministic(t *testing.T) {
	e := newFallbackEngine()
	msg := domain.Message{
		ID:      "m",
		Sender:  "jane.doe@example.com",
		Subject: "Status?",
		Body:    "need update",
	}

	first := e.Classify(context.Background(), msg)
	second := e.Classify(context.Background(), msg)

	assert.Equal(t, first.Intent, second.Intent)
	assert.Equal(t, first.Priority, second.Priority)
	assert.Equal(t, first.WorkflowActions, second.WorkflowActions)
	assert.Equal(t, first.Entities, second.Entities)
	assert.Equal(t, first.Confidence, second.Confidence)
}

func TestFallbackClassify_ClientName(t *testing.T) {
	e := newFallbackEngine()

	t.Run("点分本地部分转为标题格式", func(t *testing.T) {
		d := e.Classify(context.Background(), domain.Message{
			ID:      "m",
			Sender:  "jane.doe@example.com",
			Subject: "Status?",
			Body:    "need update",
		})

		require.NotNil(t, d.Entities.ClientName)
		assert.Equal(t, "Jane Doe", *d.Entities.ClientName)
		assert.Equal(t, domain.IntentSummarize, d.Intent)
		assert.Equal(t, []domain.WorkflowAction{domain.ActionCreateTask}, d.WorkflowActions)
	})

	t.Run("无 @ 的发件人不产生客户名", func(t *testing.T) {
		d := e.Classify(context.Background(), domain.Message{
			ID:      "m",
			Sender:  "Jane Doe",
			Subject: "question",
			Body:    "",
		})

		assert.Nil(t, d.Entities.ClientName)
	})
}

func TestFallbackClassify_RequestType(t *testing.T) {
	e := newFallbackEngine()

	d := e.Classify(context.Background(), domain.Message{ID: "m", Sender: "a@b.c", Body: "help please"})
	assert.Equal(t, "general_inquiry", d.Entities.RequestType)

	d = e.Classify(context.Background(), domain.Message{ID: "m", Sender: "a@b.c", Body: "schedule a meeting"})
	assert.Equal(t, "task_request", d.Entities.RequestType)
}
