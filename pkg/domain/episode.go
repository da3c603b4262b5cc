package domain

import "time"

// Episode is a pending clarification for a single conversation.
// It exists only while hard-required fields are unsatisfied.
type Episode struct {
	ConversationID string    `json:"conversation_id"`
	InitialQuery   string    `json:"initial_query"`
	Presence       Presence  `json:"constraints"`
	Followups      []string  `json:"followups"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
