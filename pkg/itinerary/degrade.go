package itinerary

import "slices"

// Recommended (P1) field names.
const (
	FieldDaysRisk          = "days.risk"
	FieldDaysCostBreakdown = "days.cost_breakdown"
	FieldEvidenceProvider  = "evidence.provider"
	FieldEvidenceURL       = "evidence.url"
	FieldEvidenceFetchedAt = "evidence.fetched_at"
)

// P1Assumptions maps each recommended field to the assumption recorded when it is missing.
var P1Assumptions = map[string]string{
	FieldDaysRisk:          "Risk details are incomplete; risk level may be underestimated.",
	FieldDaysCostBreakdown: "Cost breakdown is partial; total estimate has uncertainty.",
	FieldEvidenceProvider:  "Evidence provider is missing; source reliability cannot be fully graded.",
	FieldEvidenceURL:       "Evidence URL is missing; traceability is reduced.",
	FieldEvidenceFetchedAt: "Evidence recency is unknown; freshness risk should be disclosed.",
}

// P0Fields lists the hard-required field paths.
var P0Fields = []string{
	"schema_version",
	"itinerary_id",
	"revision_id",
	"trip_profile.destination_city",
	"budget_summary.total_estimate",
}

// P2Fields lists the optional field paths. Their absence is never reported.
var P2Fields = []string{
	"days.alternatives",
	"days.theme",
	"budget_summary.uncertainty_note",
	"change_summary",
}

// MissingRecommended returns the P1 fields missing anywhere in the itinerary, in stable order.
func MissingRecommended(it *Itinerary) []string {
	var riskMissing, costMissing bool
	for _, d := range it.Days {
		for _, s := range d.Slots {
			if s.Risk == nil {
				riskMissing = true
			}
			if s.CostBreakdown == nil {
				costMissing = true
			}
		}
	}

	var providerMissing, urlMissing, fetchedMissing bool
	for _, e := range it.Evidence {
		providerMissing = providerMissing || blank(e.Provider)
		urlMissing = urlMissing || blank(e.URL)
		fetchedMissing = fetchedMissing || blank(e.FetchedAt)
	}

	var missing []string
	for _, f := range []struct {
		name    string
		missing bool
	}{
		{FieldDaysRisk, riskMissing},
		{FieldDaysCostBreakdown, costMissing},
		{FieldEvidenceProvider, providerMissing},
		{FieldEvidenceURL, urlMissing},
		{FieldEvidenceFetchedAt, fetchedMissing},
	} {
		if f.missing {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Degrade appends one assumption per missing P1 field to validation.assumptions.
// Assumptions already present are not repeated. It returns the appended strings.
func Degrade(it *Itinerary) []string {
	var added []string
	for _, field := range MissingRecommended(it) {
		note := P1Assumptions[field]
		if slices.Contains(it.Validation.Assumptions, note) {
			continue
		}
		it.Validation.Assumptions = append(it.Validation.Assumptions, note)
		added = append(added, note)
	}
	return added
}

func blank(s *string) bool {
	return s == nil || *s == ""
}
