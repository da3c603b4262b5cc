package extract

import (
	"strings"

	"github.com/aretw0/tripgate/pkg/domain"
)

var defaultPresence = DefaultPresenceRules()

// Presence detects mentioned topics with the default table.
func Presence(text string) domain.Presence {
	return defaultPresence.Detect(text)
}

// Detect reports, per field, whether any of its patterns matches text.
func (rules PresenceRules) Detect(text string) domain.Presence {
	text = strings.TrimSpace(text)
	var p domain.Presence
	for _, rule := range rules {
		if !anyMatch(rule, text) {
			continue
		}
		switch rule.Field {
		case domain.FieldDestination:
			p.Destination = true
		case domain.FieldDuration:
			p.Duration = true
		case domain.FieldBudget:
			p.Budget = true
		case domain.FieldTravelers:
			p.Travelers = true
		}
	}
	return p
}

func anyMatch(rule PresenceRule, text string) bool {
	for _, re := range rule.Patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
