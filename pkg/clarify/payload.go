package clarify

import (
	"fmt"
	"strings"

	"github.com/aretw0/tripgate/pkg/domain"
)

// StageClarifyConstraints names the clarification stage in stream events.
const StageClarifyConstraints = "clarify_constraints"

// FieldLabels maps fields to user-facing labels.
var FieldLabels = map[domain.Field]string{
	domain.FieldDestination: "目的地城市",
	domain.FieldDuration:    "出行天数/日期范围",
	domain.FieldBudget:      "预算区间",
	domain.FieldTravelers:   "出行人群",
}

const (
	msgHardOnly    = "为保证行程可执行，请先补充：%s。"
	msgHardAndSoft = "为保证行程可执行，请先补充：%s。另外建议补充：%s（可选，不填也能先出草案）。"
	followupLabel  = "\n补充信息："
	followupSep    = "；"
)

// Payload is the body of a stage_progress event.
type Payload struct {
	Stage           string         `json:"stage"`
	MissingRequired []domain.Field `json:"missing_required"`
	MissingOptional []domain.Field `json:"missing_optional"`
	Message         string         `json:"message"`
}

// BuildPayload assembles the clarification payload for the given missing fields.
func BuildPayload(missingHard, missingSoft []domain.Field) Payload {
	if missingHard == nil {
		missingHard = []domain.Field{}
	}
	if missingSoft == nil {
		missingSoft = []domain.Field{}
	}
	return Payload{
		Stage:           StageClarifyConstraints,
		MissingRequired: missingHard,
		MissingOptional: missingSoft,
		Message:         Message(missingHard, missingSoft),
	}
}

// Message renders the clarification prompt. The soft suggestion is only added
// when soft fields are missing.
func Message(missingHard, missingSoft []domain.Field) string {
	hard := labels(missingHard)
	if len(missingSoft) > 0 {
		return fmt.Sprintf(msgHardAndSoft, hard, labels(missingSoft))
	}
	return fmt.Sprintf(msgHardOnly, hard)
}

// CombineQuery joins the initial query with the collected followups.
func CombineQuery(initial string, followups []string) string {
	if len(followups) == 0 {
		return initial
	}
	return initial + followupLabel + strings.Join(followups, followupSep)
}

func labels(fields []domain.Field) string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if l, ok := FieldLabels[f]; ok {
			out = append(out, l)
			continue
		}
		out = append(out, string(f))
	}
	return strings.Join(out, "、")
}
