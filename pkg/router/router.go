package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/tripgate/internal/logging"
	"github.com/aretw0/tripgate/pkg/clarify"
	"github.com/aretw0/tripgate/pkg/domain"
	"github.com/aretw0/tripgate/pkg/ports"
	"github.com/aretw0/tripgate/pkg/qp"
	"github.com/aretw0/tripgate/pkg/sse"
	"github.com/google/uuid"
)

// User-facing replies.
const (
	TextResetDone     = "已为当前会话重置行程状态，你可以重新输入新的出行需求。"
	TextNoItinerary   = "当前会话还没有可编辑的行程，请先描述目的地、天数和预算生成草案。"
	TextDraftFallback = "未能生成结构化草案，请补充目的地、天数和预算后重试。"
	TextDraftFailed   = "草案生成失败，请稍后再试。"
)

// Persist operations reported through LifecycleHooks.OnPersist.
const (
	OpRecordQuery   = "record_query"
	OpReset         = "reset"
	OpSaveItinerary = "save_itinerary"
	OpClearEpisode  = "clear_episode"
	OpLoadState     = "load_state"
)

// ErrConversationRequired is returned when a resume turn has no conversation ID.
var ErrConversationRequired = errors.New("conversation_id is required to resume")

// Mode selects how a create turn enters the clarification gate.
type Mode string

const (
	// ModeQuery starts a new episode for every create turn.
	ModeQuery Mode = "query"
	// ModeResume continues the pending episode when there is one.
	ModeResume Mode = "resume"
)

// Request is one user message.
type Request struct {
	Query          string
	UserID         *int64
	ConversationID string
	Mode           Mode
}

// Turn is a validated request with its identifiers assigned.
type Turn struct {
	Request
	RequestID string
}

// Emitter receives the events of a turn in order.
type Emitter interface {
	Emit(ev sse.Event) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ev sse.Event) error

func (f EmitterFunc) Emit(ev sse.Event) error { return f(ev) }

// Router wires the query processor, the clarification gate, the state store
// and the draft generator together.
type Router struct {
	qp        *qp.Processor
	gate      *clarify.Gate
	states    ports.StateStore
	generator ports.DraftGenerator
	engines   map[domain.Intent]IntentEngine
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	newID     func() string
}

// Option configures the Router.
type Option func(*Router)

// WithProcessor replaces the default query processor.
func WithProcessor(p *qp.Processor) Option {
	return func(r *Router) {
		r.qp = p
	}
}

// WithEngine routes the given intent to engine. Only edit and qa are delegated.
// A nil engine keeps the current one.
func WithEngine(intent domain.Intent, engine IntentEngine) Option {
	return func(r *Router) {
		if engine == nil {
			return
		}
		r.engines[intent] = engine
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Router) {
		r.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithIDGenerator overrides how conversation and request IDs are minted.
func WithIDGenerator(fn func() string) Option {
	return func(r *Router) {
		r.newID = fn
	}
}

// New creates a Router.
func New(gate *clarify.Gate, states ports.StateStore, generator ports.DraftGenerator, opts ...Option) *Router {
	r := &Router{
		qp:        qp.New(),
		gate:      gate,
		states:    states,
		generator: generator,
		engines: map[domain.Intent]IntentEngine{
			domain.IntentEdit: DefaultEditEngine,
			domain.IntentQA:   DefaultQAEngine,
		},
		logger: logging.NewNop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewTurn sanitizes and validates req and assigns the request ID, minting a
// conversation ID for query turns that carry none.
func (r *Router) NewTurn(req Request) (*Turn, error) {
	clean, err := qp.Sanitize(req.Query)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(clean) == "" {
		return nil, domain.ErrEmptyQuery
	}
	req.Query = clean
	if req.Mode == "" {
		req.Mode = ModeQuery
	}
	if req.ConversationID == "" {
		if req.Mode == ModeResume {
			return nil, ErrConversationRequired
		}
		req.ConversationID = r.newID()
	}
	return &Turn{Request: req, RequestID: r.newID()}, nil
}

// State returns the persisted snapshot of a conversation, or nil when it has none.
func (r *Router) State(ctx context.Context, conversationID string) (*domain.ConversationState, error) {
	state, err := r.states.Get(ctx, conversationID)
	if errors.Is(err, domain.ErrStateNotFound) {
		return nil, nil
	}
	return state, err
}

// Handle routes the turn and writes its events to em. It returns an error
// only when em fails; every other failure is reported inside the stream.
func (r *Router) Handle(ctx context.Context, turn *Turn, em Emitter) (domain.Outcome, error) {
	start := time.Now()
	analysis := r.qp.Process(turn.Query)

	ev := &domain.TurnEvent{
		Timestamp:      start,
		ConversationID: turn.ConversationID,
		RequestID:      turn.RequestID,
		Intent:         analysis.Intent,
		IntentDetail:   analysis.IntentDetail,
	}
	if r.hooks.OnTurnStart != nil {
		r.hooks.OnTurnStart(ctx, ev)
	}

	logger := r.logger.With("conversation_id", turn.ConversationID, "request_id", turn.RequestID)
	logger.Info("Query processed",
		"intent", analysis.Intent,
		"intent_detail", analysis.IntentDetail,
		"missing_required", analysis.MissingRequired,
	)

	t := &turnRun{Router: r, turn: turn, analysis: analysis, em: em, logger: logger}
	outcome, err := t.run(ctx)

	ev.Outcome = outcome
	ev.Duration = time.Since(start)
	if r.hooks.OnTurnEnd != nil {
		r.hooks.OnTurnEnd(ctx, ev)
	}
	return outcome, err
}

// turnRun carries the per-turn values through the branches.
type turnRun struct {
	*Router
	turn     *Turn
	analysis domain.Analysis
	em       Emitter
	logger   *slog.Logger
}

func (t *turnRun) run(ctx context.Context) (domain.Outcome, error) {
	query := t.turn.Query
	t.persist(ctx, OpRecordQuery, func() error {
		_, err := t.states.Upsert(ctx, t.turn.ConversationID, domain.StateUpdate{
			UserID:        t.turn.UserID,
			LastUserQuery: &query,
		})
		return err
	})

	if err := t.em.Emit(sse.Event{
		Type: domain.EventIntentRouted,
		Payload: intentPayload{
			Intent:       t.analysis.Intent,
			IntentDetail: t.analysis.IntentDetail,
		},
	}); err != nil {
		return domain.OutcomeFailed, err
	}

	switch t.analysis.Intent {
	case domain.IntentReset:
		return t.reset(ctx)
	case domain.IntentEdit, domain.IntentQA:
		return t.delegate(ctx)
	default:
		return t.create(ctx)
	}
}

func (t *turnRun) reset(ctx context.Context) (domain.Outcome, error) {
	query := t.turn.Query
	t.persist(ctx, OpClearEpisode, func() error {
		return t.gate.ClearPending(ctx, t.turn.ConversationID)
	})
	t.persist(ctx, OpReset, func() error {
		_, err := t.states.Reset(ctx, t.turn.ConversationID, t.turn.UserID, &query)
		return err
	})
	return domain.OutcomeReset, t.text(domain.EventResetDone, TextResetDone)
}

func (t *turnRun) delegate(ctx context.Context) (domain.Outcome, error) {
	var state *domain.ConversationState
	t.persist(ctx, OpLoadState, func() error {
		var err error
		state, err = t.State(ctx, t.turn.ConversationID)
		return err
	})
	if !state.HasItinerary() {
		return domain.OutcomeDeferred, t.text(domain.EventFinalText, TextNoItinerary)
	}

	engine, ok := t.engines[t.analysis.Intent]
	if !ok {
		return domain.OutcomeDeferred, t.text(domain.EventFinalText, TextNoItinerary)
	}
	reply, err := engine.Reply(ctx, EngineRequest{
		ConversationID: t.turn.ConversationID,
		Analysis:       t.analysis,
		State:          state,
	})
	if err != nil {
		t.logger.Error("Intent engine failed", "intent", t.analysis.Intent, "error", err)
		return domain.OutcomeFailed, t.text(domain.EventError, TextDraftFailed)
	}
	return domain.OutcomeDeferred, t.text(domain.EventFinalText, reply)
}

func (t *turnRun) create(ctx context.Context) (domain.Outcome, error) {
	id := t.turn.ConversationID
	recall := t.analysis.RecallQuery

	var (
		d       clarify.Decision
		err     error
		pending = true
	)
	if t.turn.Mode == ModeResume {
		d, pending, err = t.gate.Resume(ctx, id, t.analysis.NormalizedQuery)
	} else {
		d, err = t.gate.StartNew(ctx, id, t.analysis.NormalizedQuery)
	}
	if err != nil {
		t.logger.Error("Clarification gate failed", "error", err)
		return domain.OutcomeFailed, t.text(domain.EventError, TextDraftFailed)
	}

	if pending && d.NeedClarification {
		t.logger.Info("Clarification required",
			"missing_hard", d.MissingHard,
			"missing_soft", d.MissingSoft,
		)
		return domain.OutcomeClarification, t.clarify(d)
	}
	if d.CombinedQuery != "" {
		recall = t.qp.Process(d.CombinedQuery).RecallQuery
		t.logger.Info("Clarification completed")
	}
	return t.generate(ctx, recall)
}

func (t *turnRun) clarify(d clarify.Decision) error {
	payload := d.Payload()
	if err := t.em.Emit(sse.Event{
		Type:    domain.EventStageStart,
		Payload: stagePayload{Stage: payload.Stage},
	}); err != nil {
		return err
	}
	return t.em.Emit(sse.Event{
		Type:    domain.EventStageProgress,
		Payload: payload,
		Text:    payload.Message,
	})
}

func (t *turnRun) generate(ctx context.Context, recall string) (domain.Outcome, error) {
	res, err := t.generator.Generate(ctx, ports.DraftRequest{
		Query:          recall,
		ConversationID: t.turn.ConversationID,
		UserID:         t.turn.UserID,
	})
	if err != nil {
		t.logger.Error("Generate travel draft failed", "error", err)
		return domain.OutcomeFailed, t.text(domain.EventError, TextDraftFailed)
	}

	if res == nil || res.Itinerary == nil {
		text := TextDraftFallback
		if res != nil && res.Text != "" {
			text = res.Text
		}
		return domain.OutcomeFallbackText, t.text(domain.EventFinalText, text)
	}

	it := res.Itinerary
	revision := it.RevisionID
	if err := t.em.Emit(sse.Event{
		Type:       domain.EventFinalItinerary,
		RevisionID: &revision,
		Payload:    itineraryPayload{Itinerary: it, Explanation: res.Explanation},
	}); err != nil {
		return domain.OutcomeItinerary, err
	}

	query := t.turn.Query
	t.persist(ctx, OpSaveItinerary, func() error {
		profile, err := json.Marshal(it.TripProfile)
		if err != nil {
			return fmt.Errorf("failed to encode trip profile: %w", err)
		}
		doc, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("failed to encode itinerary: %w", err)
		}
		_, err = t.states.Upsert(ctx, t.turn.ConversationID, domain.StateUpdate{
			UserID:            t.turn.UserID,
			CurrentRevisionID: &revision,
			TripProfile:       profile,
			CurrentItinerary:  doc,
			LastUserQuery:     &query,
		})
		return err
	})

	if res.Explanation != "" {
		if err := t.em.Emit(sse.Event{Text: res.Explanation}); err != nil {
			return domain.OutcomeItinerary, err
		}
	}
	return domain.OutcomeItinerary, nil
}

func (t *turnRun) text(typ domain.EventType, text string) error {
	return t.em.Emit(sse.Event{Type: typ, Payload: textPayload{Text: text}, Text: text})
}

// persist runs a best-effort state write.
func (t *turnRun) persist(ctx context.Context, op string, fn func() error) {
	err := fn()
	if err != nil {
		t.logger.Error("Persist travel conversation state failed", "operation", op, "error", err)
	}
	if t.hooks.OnPersist != nil {
		t.hooks.OnPersist(ctx, &domain.PersistEvent{
			ConversationID: t.turn.ConversationID,
			Operation:      op,
			Err:            err,
		})
	}
}

type intentPayload struct {
	Intent       domain.Intent       `json:"intent"`
	IntentDetail domain.IntentDetail `json:"intent_detail"`
}

type textPayload struct {
	Text string `json:"text"`
}

type stagePayload struct {
	Stage string `json:"stage"`
}

type itineraryPayload struct {
	Itinerary   any    `json:"itinerary"`
	Explanation string `json:"explanation"`
}
