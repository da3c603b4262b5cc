package clarify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/tripgate/internal/logging"
	"github.com/aretw0/tripgate/pkg/domain"
	"github.com/aretw0/tripgate/pkg/extract"
	"github.com/aretw0/tripgate/pkg/ports"
)

// Decision is the outcome of a gate transition.
type Decision struct {
	NeedClarification bool
	MissingHard       []domain.Field
	MissingSoft       []domain.Field
	// CombinedQuery is set when a pending episode was completed.
	CombinedQuery string
}

// Payload returns the clarification payload of a blocking decision.
func (d Decision) Payload() Payload {
	return BuildPayload(d.MissingHard, d.MissingSoft)
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Gate tracks pending clarification episodes per conversation.
// It uses reference counting to garbage collect unused locks.
type Gate struct {
	store    ports.EpisodeStore
	presence extract.PresenceRules

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Gate.
type Option func(*Gate)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(g *Gate) {
		g.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks. Defaults to 30s.
func WithLockTTL(ttl time.Duration) Option {
	return func(g *Gate) {
		g.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Gate.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// WithPresenceRules replaces the presence detection table.
func WithPresenceRules(rules extract.PresenceRules) Option {
	return func(g *Gate) {
		g.presence = rules
	}
}

// WithClock overrides the time source used for episode timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// New creates a Gate backed by the given episode store.
func New(store ports.EpisodeStore, opts ...Option) *Gate {
	g := &Gate{
		store:    store,
		presence: extract.DefaultPresenceRules(),
		locks:    make(map[string]*lockEntry),
		lockTTL:  30 * time.Second,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (g *Gate) acquire(id string) *lockEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, exists := g.locks[id]
	if !exists {
		entry = &lockEntry{}
		g.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (g *Gate) release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, exists := g.locks[id]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(g.locks, id)
	}
}

// WithLock executes fn while holding the lock for the conversation.
// fn is not called when ctx is already done once the lock is held.
func (g *Gate) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := g.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		g.release(id)
	}()

	if g.locker != nil {
		unlock, err := g.locker.Lock(ctx, id, g.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// Released with a fresh context so a cancelled request still frees the lock.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				g.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"conversation_id", id,
					"error", err,
				)
			}
		}()
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// StartNew evaluates a fresh query. When hard fields are missing it stores a new
// episode, replacing any previous one. Otherwise any stale episode is dropped.
func (g *Gate) StartNew(ctx context.Context, id, query string) (Decision, error) {
	var d Decision
	err := g.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		d, err = g.start(ctx, id, query)
		return err
	})
	return d, err
}

// ContinuePending merges a followup into the pending episode.
// Returns domain.ErrEpisodeNotFound when the conversation has no episode.
func (g *Gate) ContinuePending(ctx context.Context, id, query string) (Decision, error) {
	var d Decision
	err := g.WithLock(ctx, id, func(ctx context.Context) error {
		ep, err := g.store.Load(ctx, id)
		if err != nil {
			return err
		}
		d, err = g.continueEpisode(ctx, id, ep, query)
		return err
	})
	return d, err
}

// Resume continues the pending episode if there is one. The check and the
// merge happen under the same lock. ok is false when nothing was pending.
func (g *Gate) Resume(ctx context.Context, id, query string) (d Decision, ok bool, err error) {
	err = g.WithLock(ctx, id, func(ctx context.Context) error {
		ep, err := g.store.Load(ctx, id)
		if errors.Is(err, domain.ErrEpisodeNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		ok = true
		d, err = g.continueEpisode(ctx, id, ep, query)
		return err
	})
	return d, ok, err
}

// ClearPending unconditionally drops the episode.
func (g *Gate) ClearPending(ctx context.Context, id string) error {
	return g.WithLock(ctx, id, func(ctx context.Context) error {
		return g.store.Delete(ctx, id)
	})
}

// HasPending reports whether the conversation has an open episode.
func (g *Gate) HasPending(ctx context.Context, id string) (bool, error) {
	_, err := g.Pending(ctx, id)
	if errors.Is(err, domain.ErrEpisodeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Pending returns the open episode of a conversation.
func (g *Gate) Pending(ctx context.Context, id string) (*domain.Episode, error) {
	return g.store.Load(ctx, id)
}

// List returns the conversations with an open episode.
func (g *Gate) List(ctx context.Context) ([]string, error) {
	return g.store.List(ctx)
}

func (g *Gate) start(ctx context.Context, id, query string) (Decision, error) {
	presence := g.presence.Detect(query)
	d := Decision{
		MissingHard: presence.Missing(domain.HardFields),
		MissingSoft: presence.Missing(domain.SoftFields),
	}
	d.NeedClarification = len(d.MissingHard) > 0

	if !d.NeedClarification {
		if err := g.store.Delete(ctx, id); err != nil {
			return d, fmt.Errorf("failed to drop stale episode: %w", err)
		}
		return d, nil
	}

	now := g.now().UTC()
	ep := &domain.Episode{
		ConversationID: id,
		InitialQuery:   query,
		Presence:       presence,
		Followups:      []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := g.store.Save(ctx, id, ep); err != nil {
		return d, fmt.Errorf("failed to save episode: %w", err)
	}
	g.logger.Debug("Clarification episode opened",
		"conversation_id", id,
		"missing_hard", d.MissingHard,
	)
	return d, nil
}

func (g *Gate) continueEpisode(ctx context.Context, id string, ep *domain.Episode, query string) (Decision, error) {
	merged := ep.Presence.Merge(g.presence.Detect(query))
	d := Decision{
		MissingHard: merged.Missing(domain.HardFields),
		MissingSoft: merged.Missing(domain.SoftFields),
	}
	d.NeedClarification = len(d.MissingHard) > 0

	ep.Presence = merged
	ep.Followups = append(ep.Followups, query)
	ep.UpdatedAt = g.now().UTC()

	if d.NeedClarification {
		if err := g.store.Save(ctx, id, ep); err != nil {
			return d, fmt.Errorf("failed to save episode: %w", err)
		}
		return d, nil
	}

	d.CombinedQuery = CombineQuery(ep.InitialQuery, ep.Followups)
	if err := g.store.Delete(ctx, id); err != nil {
		return d, fmt.Errorf("failed to close episode: %w", err)
	}
	g.logger.Debug("Clarification episode completed",
		"conversation_id", id,
		"followups", len(ep.Followups),
	)
	return d, nil
}
