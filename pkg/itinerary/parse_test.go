package itinerary_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/tripgate/pkg/itinerary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalDoc = `{
  "schema_version": "itinerary.v1",
  "itinerary_id": "iti_001",
  "revision_id": "rev_001",
  "trip_profile": {
    "destination_city": "Shanghai",
    "constraints": {"budget_range": "5000-7000", "traveler_type": "couple", "preferences": ["culture", "food"]}
  },
  "days": [
    {"day_index": 2, "slots": [{"slot": "morning", "activity": "Museum", "risk": {"level": "low"}, "cost_breakdown": {"tickets": 60}}]},
    {"day_index": 1, "theme": "Old town", "slots": [{"slot": "morning", "activity": "City walk", "risk": {"level": "medium", "text": "crowded"}, "cost_breakdown": {"food": 80}}]}
  ],
  "budget_summary": {"total_estimate": 6000}
}`

func decodeDoc(t *testing.T) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(minimalDoc), &doc))
	return doc
}

func TestParse_Valid(t *testing.T) {
	it, err := itinerary.Parse([]byte(minimalDoc))
	require.NoError(t, err)

	assert.Equal(t, "Shanghai", it.TripProfile.DestinationCity)
	require.Len(t, it.Days, 2)
	assert.Equal(t, 1, it.Days[0].DayIndex, "days are sorted by day_index")
	require.NotNil(t, it.Days[0].Theme)
	assert.Equal(t, "Old town", *it.Days[0].Theme)
	require.NotNil(t, it.Days[1].Slots[0].Risk.Level)
	assert.Equal(t, itinerary.RiskLow, *it.Days[1].Slots[0].Risk.Level)
	require.NotNil(t, it.Days[1].Slots[0].CostBreakdown.Tickets)
	assert.Equal(t, 60.0, *it.Days[1].Slots[0].CostBreakdown.Tickets)
	assert.Nil(t, it.BaseRevisionID)
	assert.Empty(t, it.Validation.Assumptions)
	assert.NotNil(t, it.Evidence)
}

// deletePath removes a dotted field path from doc, descending into every
// element of intermediate arrays ("days.theme" drops theme from each day).
func deletePath(node any, path []string) {
	switch n := node.(type) {
	case []any:
		for _, el := range n {
			deletePath(el, path)
		}
	case map[string]any:
		if len(path) == 1 {
			delete(n, path[0])
			return
		}
		deletePath(n[path[0]], path[1:])
	}
}

func TestParse_RejectsMissingP0(t *testing.T) {
	fields := append([]string{"budget_summary", "days"}, itinerary.P0Fields...)
	for _, field := range fields {
		t.Run(field, func(t *testing.T) {
			doc := decodeDoc(t)
			deletePath(doc, strings.Split(field, "."))

			_, err := itinerary.FromMap(doc)
			require.Error(t, err)
			assert.NotEmpty(t, itinerary.ValidationErrors(err))
		})
	}
}

func TestParse_IgnoresMissingP2(t *testing.T) {
	doc := decodeDoc(t)
	doc["change_summary"] = map[string]any{"changed_days": []any{1}}
	for _, field := range itinerary.P2Fields {
		deletePath(doc, strings.Split(field, "."))
	}

	it, err := itinerary.FromMap(doc)
	require.NoError(t, err)
	assert.Nil(t, it.Days[0].Theme)
	assert.Nil(t, it.ChangeSummary)
	assert.Empty(t, it.Validation.Assumptions, "optional fields never produce assumptions")
}

func TestParse_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"schema version", func(d map[string]any) { d["schema_version"] = "itinerary.v2" }},
		{"negative budget", func(d map[string]any) { d["budget_summary"] = map[string]any{"total_estimate": -5} }},
		{"empty days", func(d map[string]any) { d["days"] = []any{} }},
		{"risk level", func(d map[string]any) {
			day := d["days"].([]any)[0].(map[string]any)
			slot := day["slots"].([]any)[0].(map[string]any)
			slot["risk"] = map[string]any{"level": "critical"}
		}},
		{"duplicate day index", func(d map[string]any) {
			day := d["days"].([]any)[1].(map[string]any)
			day["day_index"] = 2
		}},
		{"self reference", func(d map[string]any) { d["base_revision_id"] = "rev_001" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := decodeDoc(t)
			tt.mutate(doc)

			_, err := itinerary.FromMap(doc)
			require.Error(t, err)
			assert.NotEmpty(t, itinerary.ValidationErrors(err))
		})
	}
}

func TestParse_DegradesMissingP1(t *testing.T) {
	doc := decodeDoc(t)
	doc["evidence"] = []any{map[string]any{"evidence_id": "ev1"}}

	it, err := itinerary.FromMap(doc)
	require.NoError(t, err)
	assert.Contains(t, it.Validation.Assumptions, itinerary.P1Assumptions[itinerary.FieldEvidenceProvider])
	assert.Contains(t, it.Validation.Assumptions, itinerary.P1Assumptions[itinerary.FieldEvidenceURL])
	assert.Contains(t, it.Validation.Assumptions, itinerary.P1Assumptions[itinerary.FieldEvidenceFetchedAt])
	assert.NotContains(t, it.Validation.Assumptions, itinerary.P1Assumptions[itinerary.FieldDaysRisk])
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := itinerary.Parse([]byte("{not json"))
	require.Error(t, err)
	assert.Nil(t, itinerary.ValidationErrors(err))
}

func TestParse_RoundTripsEncodedItinerary(t *testing.T) {
	it := minimal()
	it.Normalize()
	raw, err := json.Marshal(it)
	require.NoError(t, err)

	parsed, err := itinerary.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, it.RevisionID, parsed.RevisionID)
	assert.Equal(t, it.TripProfile.Constraints.Preferences, parsed.TripProfile.Constraints.Preferences)
}
