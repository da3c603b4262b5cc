package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/tripgate"
	"github.com/aretw0/tripgate/internal/adapters/gemini"
	"github.com/aretw0/tripgate/internal/adapters/postgres"
	"github.com/aretw0/tripgate/internal/adapters/redis"
	"github.com/aretw0/tripgate/internal/config"
	"github.com/aretw0/tripgate/internal/metrics"
	"github.com/aretw0/tripgate/pkg/draft"
	"github.com/prometheus/client_golang/prometheus"
)

// Stack is an Engine with the resources backing it.
type Stack struct {
	Engine *tripgate.Engine
	// Registry is set when metrics are enabled.
	Registry *prometheus.Registry
	closers  []func() error
}

// Close releases every backing resource.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildStack wires an Engine from cfg.
func BuildStack(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stack, error) {
	stack := &Stack{}
	engineOpts := []tripgate.Option{tripgate.WithLogger(logger)}

	// 1. Pending episodes (+ optional distributed lock)
	if cfg.UsesRedis() {
		client := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis unreachable at %s: %w", cfg.Redis.Addr, err)
		}
		store := redis.NewEpisodeStore(client,
			redis.WithPrefix(cfg.Pending.Prefix),
			redis.WithTTL(cfg.Pending.TTL),
		)
		stack.closers = append(stack.closers, store.Close)
		engineOpts = append(engineOpts, tripgate.WithEpisodeStore(store))

		if cfg.Pending.Lock {
			engineOpts = append(engineOpts, tripgate.WithLocker(redis.NewLocker(client, cfg.Pending.Prefix), cfg.Pending.LockTTL))
		}
		logger.Info("Pending episodes in redis", "addr", cfg.Redis.Addr, "lock", cfg.Pending.Lock)
	}

	// 2. Conversation state
	if cfg.UsesPostgres() {
		pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			_ = stack.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		store := postgres.NewStateStore(pool)
		stack.closers = append(stack.closers, func() error { store.Close(); return nil })
		if cfg.Postgres.Migrate {
			if err := store.Migrate(ctx); err != nil {
				_ = stack.Close()
				return nil, fmt.Errorf("postgres migrate: %w", err)
			}
		}
		engineOpts = append(engineOpts, tripgate.WithStateStore(store))
		logger.Info("Conversation state in postgres")
	}

	// 3. Draft generator
	if cfg.UsesGemini() {
		model, err := gemini.NewModel(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			_ = stack.Close()
			return nil, fmt.Errorf("gemini: %w", err)
		}
		stack.closers = append(stack.closers, model.Close)
		genOpts := []gemini.Option{gemini.WithLogger(logger)}
		if cfg.Gemini.Fallback {
			genOpts = append(genOpts, gemini.WithFallback(draft.New()))
		}
		engineOpts = append(engineOpts, tripgate.WithGenerator(gemini.NewGenerator(model, genOpts...)))
		logger.Info("Drafts generated by gemini", "model", cfg.Gemini.Model, "fallback", cfg.Gemini.Fallback)
	}

	// 4. Metrics
	if cfg.Metrics {
		reg := prometheus.NewRegistry()
		m, err := metrics.New(reg)
		if err != nil {
			_ = stack.Close()
			return nil, fmt.Errorf("metrics: %w", err)
		}
		stack.Registry = reg
		engineOpts = append(engineOpts, tripgate.WithLifecycleHooks(m.Hooks(logger)))
	}

	stack.Engine = tripgate.New(engineOpts...)
	return stack, nil
}
