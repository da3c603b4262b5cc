package extract

import (
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/tripgate/pkg/domain"
)

var defaultValues = DefaultValueRules()

// Values extracts typed constraints with the default table.
func Values(text string) domain.Constraints {
	return defaultValues.Extract(text)
}

// Extract runs every value rule over text.
func (r ValueRules) Extract(text string) domain.Constraints {
	c := domain.Constraints{
		DestinationCity: r.Destination(text),
		Days:            r.DaysCount(text),
		Budget:          r.BudgetAmount(text),
		TravelerType:    r.TravelerType(text),
		Preferences:     r.PreferenceList(text),
	}
	if pace, ok := r.PaceOf(text); ok {
		c.Pace = &pace
	}
	return c
}

// DaysCount returns the first "<n>天" value clamped to [MinDays, MaxDays].
func (r ValueRules) DaysCount(text string) *int {
	m := r.Days.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// Digit runs too long for int still mean "a lot of days".
		n = r.MaxDays
	}
	n = max(r.MinDays, min(n, r.MaxDays))
	return &n
}

// BudgetAmount returns the amount following "预算", never negative.
func (r ValueRules) BudgetAmount(text string) *float64 {
	m := r.Budget.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	v = max(v, 0)
	return &v
}

// FormatAmount renders an amount as a whole number without exponent, e.g. "6000".
func FormatAmount(v float64) string {
	return strconv.FormatFloat(math.Trunc(v), 'f', 0, 64)
}

// Destination returns the first capture of the first matching destination pattern.
func (r ValueRules) Destination(text string) *string {
	for _, re := range r.Destinations {
		if m := re.FindStringSubmatch(text); m != nil {
			dest := m[1]
			return &dest
		}
	}
	return nil
}

// TravelerType returns the first traveler keyword contained in text.
func (r ValueRules) TravelerType(text string) *string {
	for _, kw := range r.Travelers {
		if strings.Contains(text, kw) {
			v := kw
			return &v
		}
	}
	return nil
}

// PreferenceList returns every preference keyword contained in text, in table order.
func (r ValueRules) PreferenceList(text string) []string {
	prefs := []string{}
	for _, kw := range r.Preferences {
		if strings.Contains(text, kw) {
			prefs = append(prefs, kw)
		}
	}
	return prefs
}

// PaceOf returns the pace of the first matching keyword in table order.
func (r ValueRules) PaceOf(text string) (domain.Pace, bool) {
	for _, p := range r.Paces {
		if strings.Contains(text, p.Keyword) {
			return p.Pace, true
		}
	}
	return "", false
}
