package ports

import (
	"context"

	"github.com/aretw0/tripgate/pkg/domain"
)

// EpisodeStore persists pending clarification episodes.
// At most one episode exists per conversation ID; Save overwrites.
type EpisodeStore interface {
	// Save persists the episode for a given conversation ID.
	Save(ctx context.Context, conversationID string, episode *domain.Episode) error

	// Load retrieves the episode for a given conversation ID.
	// Returns domain.ErrEpisodeNotFound if there is none.
	Load(ctx context.Context, conversationID string) (*domain.Episode, error)

	// Delete removes the episode. Deleting a missing episode is not an error.
	Delete(ctx context.Context, conversationID string) error

	// List returns the IDs of conversations with an open episode.
	List(ctx context.Context) ([]string, error)
}

// StateStore persists the travel snapshot of each conversation.
type StateStore interface {
	// Get returns domain.ErrStateNotFound if the conversation has no row.
	Get(ctx context.Context, conversationID string) (*domain.ConversationState, error)

	// Upsert creates the row if needed and overwrites only the non-nil fields of update.
	Upsert(ctx context.Context, conversationID string, update domain.StateUpdate) (*domain.ConversationState, error)

	// Reset nulls the revision, profile and itinerary while keeping the row.
	Reset(ctx context.Context, conversationID string, userID *int64, lastQuery *string) (*domain.ConversationState, error)
}
