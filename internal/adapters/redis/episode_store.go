// Package redis provides Redis-backed adapters: a durable episode store and a
// distributed locker.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/tripgate/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "tripgate:pending:"

// EpisodeStore implements ports.EpisodeStore using Redis.
type EpisodeStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*EpisodeStore)

// WithTTL sets the expiration for pending episodes.
func WithTTL(ttl time.Duration) Option {
	return func(s *EpisodeStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for pending episodes.
func WithPrefix(prefix string) Option {
	return func(s *EpisodeStore) {
		s.prefix = prefix
	}
}

// NewClient creates a go-redis client for the given address.
func NewClient(address, password string, db int) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
}

// NewEpisodeStore creates a store on an existing client.
func NewEpisodeStore(client *backend.Client, opts ...Option) *EpisodeStore {
	store := &EpisodeStore{
		client: client,
		prefix: defaultPrefix,
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Episodes ("ep:"), the index ("idx") and locks ("lock:", see Locker) use
// disjoint sub-namespaces under the prefix.
func (s *EpisodeStore) key(conversationID string) string {
	return s.prefix + "ep:" + conversationID
}

func (s *EpisodeStore) indexKey() string {
	return s.prefix + "idx"
}

// Save persists the episode, refreshing its TTL.
func (s *EpisodeStore) Save(ctx context.Context, conversationID string, episode *domain.Episode) error {
	data, err := json.Marshal(episode)
	if err != nil {
		return fmt.Errorf("failed to marshal episode: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(conversationID), data, s.ttl)

	// Index score is the expiry time so List can prune lazily.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: conversationID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save episode to redis: %w", err)
	}
	return nil
}

// Load retrieves the episode.
func (s *EpisodeStore) Load(ctx context.Context, conversationID string) (*domain.Episode, error) {
	val, err := s.client.Get(ctx, s.key(conversationID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrEpisodeNotFound
		}
		return nil, fmt.Errorf("failed to get episode from redis: %w", err)
	}

	var ep domain.Episode
	if err := json.Unmarshal(val, &ep); err != nil {
		return nil, fmt.Errorf("failed to unmarshal episode: %w", err)
	}
	if ep.Followups == nil {
		ep.Followups = []string{}
	}
	return &ep, nil
}

// Delete removes the episode and its index entry.
func (s *EpisodeStore) Delete(ctx context.Context, conversationID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(conversationID))
	pipe.ZRem(ctx, s.indexKey(), conversationID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete episode from redis: %w", err)
	}
	return nil
}

// List returns conversations with an unexpired episode, pruning expired index entries.
func (s *EpisodeStore) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired episodes: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *EpisodeStore) Close() error {
	return s.client.Close()
}
