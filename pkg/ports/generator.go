package ports

import (
	"context"

	"github.com/aretw0/tripgate/pkg/itinerary"
)

// DraftRequest is the input of a draft generator.
type DraftRequest struct {
	// Query is the recall query, possibly built from a combined clarification.
	Query          string
	ConversationID string
	UserID         *int64
}

// DraftResult holds either a validated itinerary or fallback text.
type DraftResult struct {
	Itinerary   *itinerary.Itinerary
	Explanation string
	// Text is set when no itinerary could be produced.
	Text string
}

// DraftGenerator produces itinerary drafts.
type DraftGenerator interface {
	// Generate returns an error only for upstream failures. Missing hard
	// constraints are reported through DraftResult.Text.
	Generate(ctx context.Context, req DraftRequest) (*DraftResult, error)
}
