package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/aretw0/tripgate/pkg/domain"
)

// StateStore keeps conversation snapshots in a map.
type StateStore struct {
	mu     sync.RWMutex
	states map[string]*domain.ConversationState
	now    func() time.Time
}

// NewStateStore creates an empty StateStore.
func NewStateStore() *StateStore {
	return &StateStore{
		states: make(map[string]*domain.ConversationState),
		now:    time.Now,
	}
}

func (s *StateStore) Get(_ context.Context, conversationID string) (*domain.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[conversationID]
	if !ok {
		return nil, domain.ErrStateNotFound
	}
	return copyState(st), nil
}

func (s *StateStore) Upsert(_ context.Context, conversationID string, update domain.StateUpdate) (*domain.ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.row(conversationID)
	st.Apply(update, s.now().UTC())
	return copyState(st), nil
}

func (s *StateStore) Reset(_ context.Context, conversationID string, userID *int64, lastQuery *string) (*domain.ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.row(conversationID)
	st.Reset(userID, lastQuery, s.now().UTC())
	return copyState(st), nil
}

// row returns the stored row, creating it when missing. Callers hold mu.
func (s *StateStore) row(conversationID string) *domain.ConversationState {
	st, ok := s.states[conversationID]
	if !ok {
		st = domain.NewConversationState(conversationID, s.now().UTC())
		s.states[conversationID] = st
	}
	return st
}

func copyState(st *domain.ConversationState) *domain.ConversationState {
	c := *st
	c.TripProfile = append(json.RawMessage(nil), st.TripProfile...)
	c.CurrentItinerary = append(json.RawMessage(nil), st.CurrentItinerary...)
	return &c
}
