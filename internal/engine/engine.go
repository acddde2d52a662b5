package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mailagent/backend/internal/domain"
	"mailagent/backend/internal/llm"
)

// Engine 负责邮件意图分类与回复生成。
//
// 两个入口 Classify / GenerateReply 对调用方而言都是全函数：
// 远程补全失败、响应不可解析等任何异常都在内部降级为确定性
// 规则结果，不向上传播错误。
type Engine struct {
	completer llm.Completer
	log       *zap.Logger
}

// New 创建决策引擎。
func New(completer llm.Completer, log *zap.Logger) *Engine {
	return &Engine{
		completer: completer,
		log:       log,
	}
}

// Classify 分析一封邮件并给出结构化决策。
//
// 主路径调用远程补全服务做结构化抽取；调用失败、响应无法解析
// 或字段非法时回退到规则分类。两条路径的结果都经过 Normalize，
// 保证 intent/priority/confidence 离开本边界时必为合法值。
// Timestamp 一律取本地决策构造时刻，不信任远程输出。
func (e *Engine) Classify(ctx context.Context, msg domain.Message) domain.Decision {
	response, err := e.completer.Complete(ctx, analysisSystemPrompt, buildAnalysisPrompt(msg))
	if err != nil {
		e.log.Warn("completion unavailable, falling back to rule-based analysis",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		return e.fallbackClassify(msg)
	}

	decision, err := parseDecision(response)
	if err != nil {
		e.log.Warn("unparseable completion response, falling back to rule-based analysis",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		return e.fallbackClassify(msg)
	}

	decision.Timestamp = time.Now().UTC()
	decision.Normalize()

	e.log.Info("message classified",
		zap.String("message_id", msg.ID),
		zap.String("intent", string(decision.Intent)),
		zap.String("priority", string(decision.Priority)),
		zap.Float64("confidence", decision.Confidence),
	)

	return decision
}

// GenerateReply 为邮件生成回复正文。
//
// 主路径调用远程补全服务；失败时使用固定模板，
// 相同输入必然产生相同回复文本。
func (e *Engine) GenerateReply(ctx context.Context, msg domain.Message, decision domain.Decision) string {
	response, err := e.completer.Complete(ctx, replySystemPrompt, buildReplyPrompt(msg, decision))
	if err != nil {
		e.log.Warn("completion unavailable, using template reply",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		return templateReply(msg, decision)
	}

	reply := trimReply(response)
	if reply == "" {
		return templateReply(msg, decision)
	}
	return reply
}
