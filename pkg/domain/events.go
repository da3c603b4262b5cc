package domain

import (
	"context"
	"time"
)

// EventType names an event pushed to the client stream.
type EventType string

const (
	EventIntentRouted   EventType = "intent_routed"
	EventStageStart     EventType = "stage_start"
	EventStageProgress  EventType = "stage_progress"
	EventFinalItinerary EventType = "final_itinerary"
	EventFinalText      EventType = "final_text"
	EventResetDone      EventType = "reset_done"
	EventError          EventType = "error"
)

// Outcome classifies how a turn ended.
type Outcome string

const (
	OutcomeReset         Outcome = "reset"
	OutcomeDeferred      Outcome = "deferred"
	OutcomeClarification Outcome = "clarification"
	OutcomeItinerary     Outcome = "itinerary"
	OutcomeFallbackText  Outcome = "fallback_text"
	OutcomeFailed        Outcome = "failed"
)

// TurnEvent describes one routed request.
type TurnEvent struct {
	Timestamp      time.Time     `json:"timestamp"`
	ConversationID string        `json:"conversation_id"`
	RequestID      string        `json:"request_id"`
	Intent         Intent        `json:"intent"`
	IntentDetail   IntentDetail  `json:"intent_detail"`
	Outcome        Outcome       `json:"outcome,omitempty"`
	Duration       time.Duration `json:"duration,omitempty"`
}

// PersistEvent describes a state store write attempted by the router.
type PersistEvent struct {
	ConversationID string `json:"conversation_id"`
	Operation      string `json:"operation"`
	Err            error  `json:"-"`
}

// LifecycleHooks defines callbacks for router observability.
type LifecycleHooks struct {
	OnTurnStart func(context.Context, *TurnEvent)
	OnTurnEnd   func(context.Context, *TurnEvent)
	OnPersist   func(context.Context, *PersistEvent)
}
