package itinerary

import (
	"encoding/json"
	"fmt"
	"sort"
)

// SchemaVersion is the only accepted value of Itinerary.SchemaVersion.
const SchemaVersion = "itinerary.v1"

// RiskLevel grades a slot risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Itinerary is one revision of a structured trip plan.
type Itinerary struct {
	SchemaVersion  string           `json:"schema_version" validate:"eq=itinerary.v1"`
	ItineraryID    string           `json:"itinerary_id" validate:"required"`
	RevisionID     string           `json:"revision_id" validate:"required"`
	BaseRevisionID *string          `json:"base_revision_id" validate:"omitnil,min=1"`
	TripProfile    TripProfile      `json:"trip_profile"`
	Days           []Day            `json:"days" validate:"min=1,dive"`
	BudgetSummary  BudgetSummary    `json:"budget_summary"`
	Evidence       []Evidence       `json:"evidence" validate:"dive"`
	Validation     ValidationResult `json:"validation"`
	ChangeSummary  *ChangeSummary   `json:"change_summary"`
}

type TripProfile struct {
	DestinationCity string          `json:"destination_city" validate:"required"`
	DateRange       *string         `json:"date_range"`
	Travelers       *string         `json:"travelers"`
	Constraints     TripConstraints `json:"constraints"`
}

type TripConstraints struct {
	BudgetRange  *string  `json:"budget_range"`
	TravelerType *string  `json:"traveler_type"`
	Preferences  []string `json:"preferences"`
}

type Day struct {
	DayIndex int     `json:"day_index" validate:"gte=1"`
	Date     *string `json:"date"`
	Theme    *string `json:"theme"`
	Slots    []Slot  `json:"slots" validate:"min=1,dive"`
}

type Slot struct {
	Slot          string         `json:"slot" validate:"required"`
	Activity      string         `json:"activity" validate:"required"`
	Place         *string        `json:"place"`
	Transit       *string        `json:"transit"`
	CostBreakdown *CostBreakdown `json:"cost_breakdown"`
	Risk          *Risk          `json:"risk"`
	Alternatives  []Alternative  `json:"alternatives" validate:"dive"`
	EvidenceRefs  []string       `json:"evidence_refs"`
}

// CostBreakdown is also used for BudgetSummary.ByCategory.
type CostBreakdown struct {
	Transport *float64 `json:"transport"`
	Hotel     *float64 `json:"hotel"`
	Tickets   *float64 `json:"tickets"`
	Food      *float64 `json:"food"`
	Other     *float64 `json:"other"`
}

type Risk struct {
	Level *RiskLevel `json:"level" validate:"omitnil,oneof=low medium high"`
	Text  *string    `json:"text"`
}

type Alternative struct {
	Title  string  `json:"title" validate:"required"`
	Reason *string `json:"reason"`
}

type BudgetSummary struct {
	TotalEstimate   float64       `json:"total_estimate" validate:"gte=0"`
	UncertaintyNote *string       `json:"uncertainty_note"`
	ByCategory      CostBreakdown `json:"by_category"`
}

type Evidence struct {
	EvidenceID  string  `json:"evidence_id" validate:"required"`
	Provider    *string `json:"provider"`
	Title       *string `json:"title"`
	URL         *string `json:"url"`
	Snippet     *string `json:"snippet"`
	FetchedAt   *string `json:"fetched_at"`
	Attribution *string `json:"attribution"`
}

type ValidationResult struct {
	CoverageScore *float64 `json:"coverage_score"`
	Conflicts     []string `json:"conflicts"`
	Assumptions   []string `json:"assumptions"`
}

type ChangeSummary struct {
	ChangedDays []int    `json:"changed_days"`
	DiffItems   []string `json:"diff_items"`
}

// SortDays orders days by day_index.
func (it *Itinerary) SortDays() {
	sort.SliceStable(it.Days, func(i, j int) bool {
		return it.Days[i].DayIndex < it.Days[j].DayIndex
	})
}

// Normalize replaces nil lists with empty ones so they encode as [] rather than null.
func (it *Itinerary) Normalize() {
	if it.Evidence == nil {
		it.Evidence = []Evidence{}
	}
	if it.TripProfile.Constraints.Preferences == nil {
		it.TripProfile.Constraints.Preferences = []string{}
	}
	if it.Validation.Conflicts == nil {
		it.Validation.Conflicts = []string{}
	}
	if it.Validation.Assumptions == nil {
		it.Validation.Assumptions = []string{}
	}
	for i := range it.Days {
		for j := range it.Days[i].Slots {
			s := &it.Days[i].Slots[j]
			if s.Alternatives == nil {
				s.Alternatives = []Alternative{}
			}
			if s.EvidenceRefs == nil {
				s.EvidenceRefs = []string{}
			}
		}
	}
}

// Clone returns a deep copy.
func (it *Itinerary) Clone() (*Itinerary, error) {
	data, err := json.Marshal(it)
	if err != nil {
		return nil, fmt.Errorf("failed to copy itinerary: %w", err)
	}
	var out Itinerary
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to copy itinerary: %w", err)
	}
	return &out, nil
}
