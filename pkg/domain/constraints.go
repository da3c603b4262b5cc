package domain

// Field identifies a constraint topic tracked by the clarification gate.
type Field string

const (
	FieldDestination Field = "destination"
	FieldDuration    Field = "duration"
	FieldBudget      Field = "budget"
	FieldTravelers   Field = "travelers"
)

// HardFields block draft generation while missing.
var HardFields = []Field{FieldDestination, FieldDuration, FieldBudget}

// SoftFields are only suggested, never required.
var SoftFields = []Field{FieldTravelers}

// Pace is the preferred trip rhythm.
type Pace string

const (
	PaceRelaxed   Pace = "relaxed"
	PaceIntensive Pace = "intensive"
)

// Constraints holds the typed values captured from one query.
type Constraints struct {
	DestinationCity *string  `json:"destination_city"`
	Days            *int     `json:"days"`
	Budget          *float64 `json:"budget"`
	TravelerType    *string  `json:"traveler_type"`
	Preferences     []string `json:"preferences"`
	Pace            *Pace    `json:"pace"`
}

// Presence records whether each topic was mentioned, independent of the captured values.
type Presence struct {
	Destination bool `json:"destination"`
	Duration    bool `json:"duration"`
	Budget      bool `json:"budget"`
	Travelers   bool `json:"travelers"`
}

// Has reports whether the given field is marked present.
func (p Presence) Has(f Field) bool {
	switch f {
	case FieldDestination:
		return p.Destination
	case FieldDuration:
		return p.Duration
	case FieldBudget:
		return p.Budget
	case FieldTravelers:
		return p.Travelers
	}
	return false
}

// Merge returns the field-wise OR of p and other. A present flag never reverts.
func (p Presence) Merge(other Presence) Presence {
	return Presence{
		Destination: p.Destination || other.Destination,
		Duration:    p.Duration || other.Duration,
		Budget:      p.Budget || other.Budget,
		Travelers:   p.Travelers || other.Travelers,
	}
}

// Missing returns the fields from the given set that are not present, in set order.
func (p Presence) Missing(fields []Field) []Field {
	missing := []Field{}
	for _, f := range fields {
		if !p.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}
