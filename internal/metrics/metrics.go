// Package metrics exports router activity as Prometheus collectors.
package metrics

import (
	"context"
	"log/slog"

	"github.com/aretw0/tripgate/internal/logging"
	"github.com/aretw0/tripgate/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the router collectors.
type Metrics struct {
	turns           *prometheus.CounterVec
	turnDuration    *prometheus.HistogramVec
	persistFailures *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripgate_turns_total",
				Help: "Total number of routed turns",
			},
			[]string{"intent", "outcome"},
		),
		turnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tripgate_turn_duration_seconds",
				Help:    "Duration of routed turns",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"intent"},
		),
		persistFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripgate_persist_failures_total",
				Help: "Total number of failed conversation state writes",
			},
			[]string{"operation"},
		),
	}
	for _, c := range []prometheus.Collector{m.turns, m.turnDuration, m.persistFailures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m and log at debug level.
func (m *Metrics) Hooks(logger *slog.Logger) domain.LifecycleHooks {
	if logger == nil {
		logger = logging.NewNop()
	}
	return domain.LifecycleHooks{
		OnTurnStart: func(ctx context.Context, e *domain.TurnEvent) {
			logger.Debug("Turn Start", "conversation_id", e.ConversationID, "intent", e.Intent)
		},
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			logger.Debug("Turn End", "conversation_id", e.ConversationID, "outcome", e.Outcome, "duration", e.Duration)
			m.turns.WithLabelValues(string(e.Intent), string(e.Outcome)).Inc()
			m.turnDuration.WithLabelValues(string(e.Intent)).Observe(e.Duration.Seconds())
		},
		OnPersist: func(ctx context.Context, e *domain.PersistEvent) {
			if e.Err != nil {
				m.persistFailures.WithLabelValues(e.Operation).Inc()
			}
		},
	}
}
