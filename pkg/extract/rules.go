package extract

import (
	"regexp"

	"github.com/aretw0/tripgate/pkg/domain"
)

// PaceKeyword maps a keyword to a trip pace.
type PaceKeyword struct {
	Keyword string
	Pace    domain.Pace
}

// ValueRules is the rule table of the value extractor.
type ValueRules struct {
	Days         *regexp.Regexp
	MinDays      int
	MaxDays      int
	Budget       *regexp.Regexp
	Destinations []*regexp.Regexp
	Travelers    []string
	Preferences  []string
	Paces        []PaceKeyword
}

// PresenceRule lists the patterns that mark a field as mentioned.
type PresenceRule struct {
	Field    domain.Field
	Patterns []*regexp.Regexp
}

// PresenceRules is the rule table of the presence detector.
type PresenceRules []PresenceRule

const han = `\x{4e00}-\x{9fa5}`

// DefaultValueRules returns the built-in value table.
func DefaultValueRules() ValueRules {
	return ValueRules{
		Days:    regexp.MustCompile(`(\d+)\s*天`),
		MinDays: 1,
		MaxDays: 14,
		Budget:  regexp.MustCompile(`预算\s*([0-9]+(?:\.[0-9]+)?)`),
		Destinations: []*regexp.Regexp{
			regexp.MustCompile(`(?:去|到|在)\s*([A-Za-z` + han + `]{2,20})`),
			regexp.MustCompile(`([A-Za-z` + han + `]{2,20})\s*\d+\s*天`),
		},
		Travelers:   []string{"亲子", "情侣", "家庭", "独自", "朋友"},
		Preferences: []string{"文化", "美食", "自然", "海边", "亲子", "博物馆", "夜景", "购物", "徒步", "摄影"},
		Paces: []PaceKeyword{
			{Keyword: "轻松", Pace: domain.PaceRelaxed},
			{Keyword: "慢节奏", Pace: domain.PaceRelaxed},
			{Keyword: "紧凑", Pace: domain.PaceIntensive},
			{Keyword: "特种兵", Pace: domain.PaceIntensive},
		},
	}
}

// DefaultPresenceRules returns the built-in presence table. All patterns are case-insensitive.
func DefaultPresenceRules() PresenceRules {
	return PresenceRules{
		{
			Field: domain.FieldDestination,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(去|到|前往|飞往|想去|目的地)\s*[:：]?\s*([` + han + `A-Za-z][` + han + `A-Za-z\s\-\.'/]{1,40})`),
				regexp.MustCompile(`(?i)([` + han + `A-Za-z]{2,20})\s*\d+\s*(天|日|晚|夜)`),
				regexp.MustCompile(`(?i)\b(to|in|visit|travel to|go to|destination)\s+([A-Za-z][A-Za-z\s\-]{1,40})\b`),
				regexp.MustCompile(`(?i)(城市|city|country|国家)\s*[:：]?\s*([A-Za-z` + han + `][A-Za-z` + han + `\s\-]{1,40})`),
			},
		},
		{
			Field: domain.FieldDuration,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(\d+\s*[天日])|(\d+\s*(day|days|晚|夜))`),
			},
		},
		{
			Field: domain.FieldBudget,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(预算|人均|总价|费用|cost|budget)`),
				regexp.MustCompile(`(?i)(¥|￥|\$|€|£|\d+\s*(元|块|千|k|K|万|w|W|usd|eur|gbp))`),
			},
		},
		{
			Field: domain.FieldTravelers,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(独行|独自|一个人|情侣|亲子|家庭|朋友|多人|solo|couple|family|friends|group)`),
				regexp.MustCompile(`(?i)\d+\s*人`),
			},
		},
	}
}
