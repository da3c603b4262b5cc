package itinerary

import (
	"fmt"

	"github.com/google/uuid"
)

// New builds the first revision of a new itinerary. BaseRevisionID is nil.
func New(profile TripProfile, days []Day, budget BudgetSummary) *Itinerary {
	it := &Itinerary{
		SchemaVersion: SchemaVersion,
		ItineraryID:   uuid.NewString(),
		RevisionID:    uuid.NewString(),
		TripProfile:   profile,
		Days:          days,
		BudgetSummary: budget,
	}
	it.SortDays()
	it.Normalize()
	return it
}

// Derive returns an edited copy linked to it: same itinerary ID, a fresh
// revision ID and BaseRevisionID pointing at it.RevisionID.
func Derive(it *Itinerary) (*Itinerary, error) {
	if it.RevisionID == "" {
		return nil, fmt.Errorf("cannot derive from an itinerary without revision_id")
	}
	next, err := it.Clone()
	if err != nil {
		return nil, err
	}
	base := it.RevisionID
	next.BaseRevisionID = &base
	next.RevisionID = uuid.NewString()
	next.ChangeSummary = &ChangeSummary{ChangedDays: []int{}, DiffItems: []string{}}
	return next, nil
}
