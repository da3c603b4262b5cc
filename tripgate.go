package tripgate

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/tripgate/internal/adapters/memory"
	"github.com/aretw0/tripgate/internal/logging"
	"github.com/aretw0/tripgate/pkg/clarify"
	"github.com/aretw0/tripgate/pkg/domain"
	"github.com/aretw0/tripgate/pkg/draft"
	"github.com/aretw0/tripgate/pkg/ports"
	"github.com/aretw0/tripgate/pkg/router"
	"github.com/aretw0/tripgate/pkg/sse"
)

// Engine is the high-level entry point for the tripgate library.
// It wires the clarification gate, the stores and the draft generator into a router.
type Engine struct {
	router    *router.Router
	gate      *clarify.Gate
	episodes  ports.EpisodeStore
	states    ports.StateStore
	generator ports.DraftGenerator
	locker    ports.DistributedLocker
	lockTTL   time.Duration
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	engines   map[domain.Intent]router.IntentEngine
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithEpisodeStore sets where pending clarification episodes live. Defaults to memory.
func WithEpisodeStore(s ports.EpisodeStore) Option {
	return func(e *Engine) {
		e.episodes = s
	}
}

// WithStateStore sets where conversation snapshots are persisted. Defaults to memory.
func WithStateStore(s ports.StateStore) Option {
	return func(e *Engine) {
		e.states = s
	}
}

// WithGenerator sets the draft generator. Defaults to the rule-based generator.
func WithGenerator(g ports.DraftGenerator) Option {
	return func(e *Engine) {
		e.generator = g
	}
}

// WithLocker enables cross-process mutual exclusion per conversation.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = l
		e.lockTTL = ttl
	}
}

// WithIntentEngine routes edit or qa turns to engine.
func WithIntentEngine(intent domain.Intent, engine router.IntentEngine) Option {
	return func(e *Engine) {
		e.engines[intent] = engine
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New initializes an Engine. Without options everything runs in memory.
func New(opts ...Option) *Engine {
	eng := &Engine{engines: make(map[domain.Intent]router.IntentEngine)}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.episodes == nil {
		eng.episodes = memory.NewEpisodeStore()
	}
	if eng.states == nil {
		eng.states = memory.NewStateStore()
	}
	if eng.generator == nil {
		eng.generator = draft.New()
	}

	gateOpts := []clarify.Option{clarify.WithLogger(eng.logger)}
	if eng.locker != nil {
		gateOpts = append(gateOpts, clarify.WithLocker(eng.locker))
		if eng.lockTTL > 0 {
			gateOpts = append(gateOpts, clarify.WithLockTTL(eng.lockTTL))
		}
	}
	eng.gate = clarify.New(eng.episodes, gateOpts...)

	routerOpts := []router.Option{
		router.WithLogger(eng.logger),
		router.WithLifecycleHooks(eng.hooks),
	}
	for intent, engine := range eng.engines {
		routerOpts = append(routerOpts, router.WithEngine(intent, engine))
	}
	eng.router = router.New(eng.gate, eng.states, eng.generator, routerOpts...)
	return eng
}

// NewTurn validates req and assigns its identifiers.
func (e *Engine) NewTurn(req router.Request) (*router.Turn, error) {
	return e.router.NewTurn(req)
}

// Handle routes one turn, writing its events to em.
func (e *Engine) Handle(ctx context.Context, turn *router.Turn, em router.Emitter) (domain.Outcome, error) {
	return e.router.Handle(ctx, turn, em)
}

// State returns the persisted snapshot of a conversation, or nil when it has none.
func (e *Engine) State(ctx context.Context, conversationID string) (*domain.ConversationState, error) {
	return e.router.State(ctx, conversationID)
}

// Reply is the collected result of one turn.
type Reply struct {
	ConversationID string         `json:"conversation_id"`
	RequestID      string         `json:"request_id"`
	Outcome        domain.Outcome `json:"outcome"`
	Events         []sse.Event    `json:"events"`
}

// Text returns the user-facing lines of the reply in order.
func (r *Reply) Text() []string {
	var lines []string
	for _, ev := range r.Events {
		if ev.Text != "" {
			lines = append(lines, ev.Text)
		}
	}
	return lines
}

// Last returns the last event of the given type, or nil.
func (r *Reply) Last(typ domain.EventType) *sse.Event {
	for i := len(r.Events) - 1; i >= 0; i-- {
		if r.Events[i].Type == typ {
			return &r.Events[i]
		}
	}
	return nil
}

// Ask runs one turn and collects its events instead of streaming them.
func (e *Engine) Ask(ctx context.Context, req router.Request) (*Reply, error) {
	turn, err := e.router.NewTurn(req)
	if err != nil {
		return nil, err
	}
	reply := &Reply{ConversationID: turn.ConversationID, RequestID: turn.RequestID}
	outcome, err := e.router.Handle(ctx, turn, router.EmitterFunc(func(ev sse.Event) error {
		reply.Events = append(reply.Events, ev)
		return nil
	}))
	reply.Outcome = outcome
	return reply, err
}

// Pending returns the open clarification episode of a conversation.
func (e *Engine) Pending(ctx context.Context, conversationID string) (*domain.Episode, error) {
	return e.gate.Pending(ctx, conversationID)
}

// ListPending returns the conversations with an open clarification episode.
func (e *Engine) ListPending(ctx context.Context) ([]string, error) {
	return e.gate.List(ctx)
}

// ClearPending drops the open clarification episode of a conversation.
func (e *Engine) ClearPending(ctx context.Context, conversationID string) error {
	return e.gate.ClearPending(ctx, conversationID)
}
