// Package memory provides in-process implementations of the storage ports.
// Data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/tripgate/pkg/domain"
)

// EpisodeStore keeps clarification episodes in a map.
type EpisodeStore struct {
	mu       sync.RWMutex
	episodes map[string]*domain.Episode
}

// NewEpisodeStore creates an empty EpisodeStore.
func NewEpisodeStore() *EpisodeStore {
	return &EpisodeStore{episodes: make(map[string]*domain.Episode)}
}

func (s *EpisodeStore) Save(_ context.Context, conversationID string, episode *domain.Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.episodes[conversationID] = copyEpisode(episode)
	return nil
}

func (s *EpisodeStore) Load(_ context.Context, conversationID string) (*domain.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ep, ok := s.episodes[conversationID]
	if !ok {
		return nil, domain.ErrEpisodeNotFound
	}
	return copyEpisode(ep), nil
}

func (s *EpisodeStore) Delete(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.episodes, conversationID)
	return nil
}

func (s *EpisodeStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.episodes))
	for id := range s.episodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// copyEpisode isolates stored episodes from caller mutations.
func copyEpisode(ep *domain.Episode) *domain.Episode {
	c := *ep
	c.Followups = append([]string{}, ep.Followups...)
	return &c
}
