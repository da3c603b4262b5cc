package qp

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/tripgate/pkg/domain"
	"github.com/aretw0/tripgate/pkg/extract"
)

var whitespace = regexp.MustCompile(`\s+`)

// hint matches one keyword. ASCII hints match whole words case-insensitively,
// other hints match as raw substrings.
type hint struct {
	word string
	re   *regexp.Regexp
}

func compileHints(words []string) []hint {
	hints := make([]hint, 0, len(words))
	for _, w := range words {
		h := hint{word: w}
		if isASCII(w) {
			h.re = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
		}
		hints = append(hints, h)
	}
	return hints
}

func (h hint) match(text string) bool {
	if h.re != nil {
		return h.re.MatchString(text)
	}
	return strings.Contains(text, h.word)
}

func anyHint(hints []hint, text string) bool {
	for _, h := range hints {
		if h.match(text) {
			return true
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Processor classifies queries and builds recall text. It is safe for concurrent use.
type Processor struct {
	rules    Rules
	values   extract.ValueRules
	presence extract.PresenceRules

	reset    []hint
	edit     []hint
	evidence []hint
}

// Option configures the Processor.
type Option func(*Processor)

// WithRules replaces the intent table.
func WithRules(r Rules) Option {
	return func(p *Processor) {
		p.rules = r
	}
}

// WithValueRules replaces the value extraction table.
func WithValueRules(r extract.ValueRules) Option {
	return func(p *Processor) {
		p.values = r
	}
}

// WithPresenceRules replaces the presence detection table.
func WithPresenceRules(r extract.PresenceRules) Option {
	return func(p *Processor) {
		p.presence = r
	}
}

// New creates a Processor with the default tables unless overridden.
func New(opts ...Option) *Processor {
	p := &Processor{
		rules:    DefaultRules(),
		values:   extract.DefaultValueRules(),
		presence: extract.DefaultPresenceRules(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.reset = compileHints(p.rules.ResetHints)
	p.edit = compileHints(p.rules.EditHints)
	p.evidence = compileHints(p.rules.EvidenceHints)
	return p
}

// Normalize trims the query and collapses whitespace runs to a single space.
func Normalize(query string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(query), " ")
}

// Process analyses a raw query. It never fails: unparseable fields stay nil.
func (p *Processor) Process(query string) domain.Analysis {
	normalized := Normalize(query)
	intent, detail := p.Classify(normalized)
	constraints := p.values.Extract(normalized)
	presence := p.presence.Detect(normalized)

	return domain.Analysis{
		Intent:          intent,
		IntentDetail:    detail,
		NormalizedQuery: normalized,
		RecallQuery:     p.Recall(normalized, constraints),
		Constraints:     constraints,
		Presence:        presence,
		MissingRequired: presence.Missing(domain.HardFields),
		RewriteApplied:  normalized != query,
	}
}

// Classify returns the intent of a normalized query. The first matching rule wins:
// reset, edit, evidence question, local question, then create.
func (p *Processor) Classify(normalized string) (domain.Intent, domain.IntentDetail) {
	switch {
	case anyHint(p.reset, normalized):
		return domain.IntentReset, domain.DetailResetAll
	case p.rules.EditDay.MatchString(normalized) || anyHint(p.edit, normalized):
		return domain.IntentEdit, domain.DetailEditDay
	case anyHint(p.evidence, normalized):
		return domain.IntentQA, domain.DetailQAEvidence
	case p.rules.Question.MatchString(normalized):
		return domain.IntentQA, domain.DetailQALocal
	}
	return domain.IntentCreate, domain.DetailFirstCreate
}

// Recall appends one labeled token per captured constraint to the normalized text.
func (p *Processor) Recall(normalized string, c domain.Constraints) string {
	parts := []string{normalized}
	if c.DestinationCity != nil && *c.DestinationCity != "" {
		parts = append(parts, "目的地:"+*c.DestinationCity)
	}
	if c.Days != nil {
		parts = append(parts, "天数:"+strconv.Itoa(*c.Days))
	}
	if c.Budget != nil {
		parts = append(parts, "预算:"+extract.FormatAmount(*c.Budget))
	}
	if c.TravelerType != nil && *c.TravelerType != "" {
		parts = append(parts, "人群:"+*c.TravelerType)
	}
	if len(c.Preferences) > 0 {
		parts = append(parts, "偏好:"+strings.Join(c.Preferences, "/"))
	}
	if c.Pace != nil {
		parts = append(parts, "节奏:"+string(*c.Pace))
	}
	return strings.Join(parts, p.rules.RecallSeparator)
}
