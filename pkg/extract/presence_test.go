package extract_test

import (
	"testing"

	"github.com/aretw0/tripgate/pkg/domain"
	"github.com/aretw0/tripgate/pkg/extract"
	"github.com/stretchr/testify/assert"
)

func TestPresence_Fields(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.Presence
	}{
		{"destination only", "去北京", domain.Presence{Destination: true}},
		{"duration and budget", "5天，预算8000", domain.Presence{Duration: true, Budget: true}},
		{"english", "travel to Kyoto for 3 days, budget 2000 usd, couple", domain.Presence{Destination: true, Duration: true, Budget: true, Travelers: true}},
		{"head count", "我们3人出发", domain.Presence{Travelers: true}},
		{"currency symbol", "￥5000 左右", domain.Presence{Budget: true}},
		{"nothing", "你好", domain.Presence{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extract.Presence(tt.text))
		})
	}
}

func TestPresence_CaseInsensitive(t *testing.T) {
	p := extract.Presence("BUDGET is fine, FAMILY trip")
	assert.True(t, p.Budget)
	assert.True(t, p.Travelers)
}

func TestPresence_DisagreesWithValues(t *testing.T) {
	// "日" counts as a duration mention but the value rule only captures "天".
	text := "去厦门3日游"
	assert.True(t, extract.Presence(text).Duration)
	assert.Nil(t, extract.Values(text).Days)

	// A bare "预算" mention is present without a capturable amount.
	text = "预算还没想好"
	assert.True(t, extract.Presence(text).Budget)
	assert.Nil(t, extract.Values(text).Budget)
}

func TestPresence_CustomRules(t *testing.T) {
	rules := extract.PresenceRules{}
	assert.Equal(t, domain.Presence{}, rules.Detect("去北京 5天 预算8000"))
}
