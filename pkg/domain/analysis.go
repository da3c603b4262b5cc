package domain

// Intent is the coarse routing decision for a query.
type Intent string

const (
	IntentCreate Intent = "create"
	IntentEdit   Intent = "edit"
	IntentQA     Intent = "qa"
	IntentReset  Intent = "reset"
)

// IntentDetail refines an Intent.
type IntentDetail string

const (
	DetailFirstCreate IntentDetail = "first_create"
	DetailEditDay     IntentDetail = "edit_day"
	DetailQAEvidence  IntentDetail = "qa_evidence"
	DetailQALocal     IntentDetail = "qa_local"
	DetailResetAll    IntentDetail = "reset_all"
)

// Analysis is the output of the query processor.
type Analysis struct {
	Intent          Intent       `json:"intent"`
	IntentDetail    IntentDetail `json:"intent_detail"`
	NormalizedQuery string       `json:"normalized_query"`
	RecallQuery     string       `json:"recall_query"`
	Constraints     Constraints  `json:"constraints"`
	Presence        Presence     `json:"constraint_presence"`
	// MissingRequired is derived from Presence over HardFields only.
	MissingRequired []Field `json:"missing_required"`
	RewriteApplied  bool    `json:"rewrite_applied"`
}
