package itinerary_test

import (
	"testing"

	"github.com/aretw0/tripgate/pkg/itinerary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func minimal() *itinerary.Itinerary {
	return &itinerary.Itinerary{
		SchemaVersion: itinerary.SchemaVersion,
		ItineraryID:   "iti_001",
		RevisionID:    "rev_001",
		TripProfile: itinerary.TripProfile{
			DestinationCity: "Shanghai",
			Constraints: itinerary.TripConstraints{
				BudgetRange:  ptr("5000-7000"),
				TravelerType: ptr("couple"),
				Preferences:  []string{"culture", "food"},
			},
		},
		Days: []itinerary.Day{
			{DayIndex: 1, Slots: []itinerary.Slot{{Slot: "morning", Activity: "City walk"}}},
		},
		BudgetSummary: itinerary.BudgetSummary{TotalEstimate: 6000},
	}
}

func TestValidate_AcceptsMinimal(t *testing.T) {
	assert.NoError(t, itinerary.Validate(minimal()))
}

func TestValidate_AllowsMissingP1(t *testing.T) {
	it := minimal()
	assert.Nil(t, it.Days[0].Slots[0].Risk)
	assert.Empty(t, it.Evidence)
	assert.NoError(t, itinerary.Validate(it))
}

func TestValidate_RejectsP0Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*itinerary.Itinerary)
		key    string
	}{
		{"schema version", func(it *itinerary.Itinerary) { it.SchemaVersion = "itinerary.v2" }, "schema_version"},
		{"missing revision", func(it *itinerary.Itinerary) { it.RevisionID = "" }, "revision_id"},
		{"missing itinerary id", func(it *itinerary.Itinerary) { it.ItineraryID = "" }, "itinerary_id"},
		{"missing destination", func(it *itinerary.Itinerary) { it.TripProfile.DestinationCity = "" }, "trip_profile.destination_city"},
		{"negative budget", func(it *itinerary.Itinerary) { it.BudgetSummary.TotalEstimate = -1 }, "budget_summary.total_estimate"},
		{"no days", func(it *itinerary.Itinerary) { it.Days = nil }, "days"},
		{"no slots", func(it *itinerary.Itinerary) { it.Days[0].Slots = []itinerary.Slot{} }, "days[0].slots"},
		{"empty activity", func(it *itinerary.Itinerary) { it.Days[0].Slots[0].Activity = "" }, "days[0].slots[0].activity"},
		{"day index zero", func(it *itinerary.Itinerary) { it.Days[0].DayIndex = 0 }, "days[0].day_index"},
		{"invalid risk level", func(it *itinerary.Itinerary) {
			level := itinerary.RiskLevel("critical")
			it.Days[0].Slots[0].Risk = &itinerary.Risk{Level: &level, Text: ptr("Too crowded")}
		}, "days[0].slots[0].risk.level"},
		{"evidence without id", func(it *itinerary.Itinerary) {
			it.Evidence = []itinerary.Evidence{{Provider: ptr("web")}}
		}, "evidence[0].evidence_id"},
		{"duplicate day index", func(it *itinerary.Itinerary) {
			it.Days = append(it.Days, itinerary.Day{DayIndex: 1, Slots: []itinerary.Slot{{Slot: "afternoon", Activity: "Museum"}}})
		}, "days[1].day_index"},
		{"self referenced revision", func(it *itinerary.Itinerary) { it.BaseRevisionID = ptr(it.RevisionID) }, "base_revision_id"},
		{"empty base revision", func(it *itinerary.Itinerary) { it.BaseRevisionID = ptr("") }, "base_revision_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := minimal()
			tt.mutate(it)

			err := itinerary.Validate(it)
			require.Error(t, err)
			assert.True(t, itinerary.HasViolation(err, tt.key), "expected violation on %q, got: %v", tt.key, err)
		})
	}
}

func TestValidate_AllowsNullBase(t *testing.T) {
	it := minimal()
	it.BaseRevisionID = nil
	assert.NoError(t, itinerary.Validate(it))

	it.BaseRevisionID = ptr("rev_000")
	assert.NoError(t, itinerary.Validate(it))
}

func TestValidate_ReportsEveryViolation(t *testing.T) {
	it := minimal()
	it.SchemaVersion = "v0"
	it.RevisionID = ""

	err := itinerary.Validate(it)
	require.Error(t, err)
	assert.Len(t, itinerary.ValidationErrors(err), 2)
}

func TestValidate_Nil(t *testing.T) {
	assert.Error(t, itinerary.Validate(nil))
}
