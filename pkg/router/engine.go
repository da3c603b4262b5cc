package router

import (
	"context"

	"github.com/aretw0/tripgate/pkg/domain"
)

// EngineRequest is the input of an IntentEngine.
type EngineRequest struct {
	ConversationID string
	Analysis       domain.Analysis
	// State always holds an itinerary when an engine is called.
	State *domain.ConversationState
}

// IntentEngine answers edit or qa turns against an existing itinerary.
type IntentEngine interface {
	Reply(ctx context.Context, req EngineRequest) (string, error)
}

// NotImplemented is an IntentEngine that only acknowledges the intent.
type NotImplemented struct {
	Text string
}

func (n NotImplemented) Reply(context.Context, EngineRequest) (string, error) {
	return n.Text, nil
}

// Default replies for intents without a real engine.
var (
	DefaultEditEngine IntentEngine = NotImplemented{Text: "已识别编辑意图，下一步将接入 patch 编辑引擎执行结构化修改。"}
	DefaultQAEngine   IntentEngine = NotImplemented{Text: "已识别问答意图，下一步将接入行程问答分支。"}
)
