// Package draft builds minimal itinerary drafts from extracted constraints.
//
// The generator needs no network access: every day gets the same three slot
// templates. It serves as the default ports.DraftGenerator and as the fallback
// when no model backend is configured.
package draft

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/tripgate/pkg/extract"
	"github.com/aretw0/tripgate/pkg/itinerary"
	"github.com/aretw0/tripgate/pkg/ports"
)

// SlotTemplate describes one slot repeated on every day. Activity may contain
// a single %d verb for the day index.
type SlotTemplate struct {
	Slot     string
	Activity string
}

// Templates holds the user-facing strings of the generator.
type Templates struct {
	Slots              []SlotTemplate
	RequiredLabels     [3]string // destination, days, budget
	BudgetHint         string // one %s verb for the whole amount
	MissingP0          string
	TravelerAssumption string
	Explanation        string
}

// DefaultTemplates returns the built-in Chinese templates.
func DefaultTemplates() Templates {
	return Templates{
		Slots: []SlotTemplate{
			{Slot: "上午", Activity: "第%d天城市漫步与地标打卡"},
			{Slot: "下午", Activity: "第%d天核心景点参观"},
			{Slot: "晚上", Activity: "第%d天美食与休闲活动"},
		},
		RequiredLabels:     [3]string{"目的地", "行程天数", "预算"},
		BudgetHint:         "约%s元",
		MissingP0:          "为了生成结构化行程草案，请补充：%s。",
		TravelerAssumption: "未提供出行人群，默认按通用休闲偏好生成草案。",
		Explanation:        "已基于你提供的约束生成 %d 天的最小行程草案。",
	}
}

// Generator is a rule-based ports.DraftGenerator.
type Generator struct {
	rules     extract.ValueRules
	templates Templates
}

// Option configures the Generator.
type Option func(*Generator)

// WithValueRules replaces the extraction table.
func WithValueRules(rules extract.ValueRules) Option {
	return func(g *Generator) {
		g.rules = rules
	}
}

// WithTemplates replaces the user-facing strings.
func WithTemplates(t Templates) Option {
	return func(g *Generator) {
		g.templates = t
	}
}

// New creates a Generator with the default tables.
func New(opts ...Option) *Generator {
	g := &Generator{
		rules:     extract.DefaultValueRules(),
		templates: DefaultTemplates(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ ports.DraftGenerator = (*Generator)(nil)

// Generate builds a draft from the query. Missing destination, days or budget
// yields a text result naming them.
func (g *Generator) Generate(ctx context.Context, req ports.DraftRequest) (*ports.DraftResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query := strings.TrimSpace(req.Query)
	c := g.rules.Extract(query)

	var missing []string
	if c.DestinationCity == nil {
		missing = append(missing, g.templates.RequiredLabels[0])
	}
	if c.Days == nil {
		missing = append(missing, g.templates.RequiredLabels[1])
	}
	if c.Budget == nil {
		missing = append(missing, g.templates.RequiredLabels[2])
	}
	if len(missing) > 0 {
		return &ports.DraftResult{
			Text: fmt.Sprintf(g.templates.MissingP0, strings.Join(missing, "、")),
		}, nil
	}

	budgetHint := fmt.Sprintf(g.templates.BudgetHint, extract.FormatAmount(*c.Budget))
	profile := itinerary.TripProfile{
		DestinationCity: *c.DestinationCity,
		Constraints: itinerary.TripConstraints{
			BudgetRange:  &budgetHint,
			TravelerType: c.TravelerType,
			Preferences:  c.Preferences,
		},
	}
	days := make([]itinerary.Day, 0, *c.Days)
	for i := 1; i <= *c.Days; i++ {
		days = append(days, itinerary.Day{DayIndex: i, Slots: g.slots(i)})
	}
	it := itinerary.New(profile, days, itinerary.BudgetSummary{TotalEstimate: *c.Budget})

	var assumptions []string
	if c.TravelerType == nil {
		assumptions = append(assumptions, g.templates.TravelerAssumption)
	}
	it.Validation.Assumptions = append(it.Validation.Assumptions, assumptions...)
	itinerary.Degrade(it)

	if err := itinerary.Validate(it); err != nil {
		return nil, fmt.Errorf("generated draft is invalid: %w", err)
	}

	explanation := fmt.Sprintf(g.templates.Explanation, *c.Days)
	if len(assumptions) > 0 {
		explanation = strings.TrimSpace(explanation + " " + strings.Join(assumptions, " "))
	}
	return &ports.DraftResult{Itinerary: it, Explanation: explanation}, nil
}

func (g *Generator) slots(day int) []itinerary.Slot {
	out := make([]itinerary.Slot, 0, len(g.templates.Slots))
	for _, t := range g.templates.Slots {
		activity := t.Activity
		if strings.Contains(activity, "%d") {
			activity = fmt.Sprintf(activity, day)
		}
		out = append(out, itinerary.Slot{Slot: t.Slot, Activity: activity})
	}
	return out
}
