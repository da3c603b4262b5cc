package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// ConversationState is the persisted travel snapshot of one conversation.
type ConversationState struct {
	ConversationID    string          `json:"conversation_id"`
	UserID            *int64          `json:"user_id"`
	CurrentRevisionID *string         `json:"current_revision_id"`
	TripProfile       json.RawMessage `json:"trip_profile"`
	CurrentItinerary  json.RawMessage `json:"current_itinerary"`
	LastUserQuery     *string         `json:"last_user_query"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// HasItinerary reports whether the conversation holds a current itinerary.
func (s *ConversationState) HasItinerary() bool {
	if s == nil {
		return false
	}
	return !isNullJSON(s.CurrentItinerary)
}

// StateUpdate carries the fields of an upsert. Nil fields are left untouched.
type StateUpdate struct {
	UserID            *int64
	CurrentRevisionID *string
	TripProfile       json.RawMessage
	CurrentItinerary  json.RawMessage
	LastUserQuery     *string
}

// NewConversationState creates an empty row for the given conversation.
func NewConversationState(conversationID string, now time.Time) *ConversationState {
	return &ConversationState{
		ConversationID: conversationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Apply overwrites the fields set in u.
func (s *ConversationState) Apply(u StateUpdate, now time.Time) {
	if u.UserID != nil {
		s.UserID = u.UserID
	}
	if u.CurrentRevisionID != nil {
		s.CurrentRevisionID = u.CurrentRevisionID
	}
	if u.TripProfile != nil {
		s.TripProfile = u.TripProfile
	}
	if u.CurrentItinerary != nil {
		s.CurrentItinerary = u.CurrentItinerary
	}
	if u.LastUserQuery != nil {
		s.LastUserQuery = u.LastUserQuery
	}
	s.UpdatedAt = now
}

// Reset drops the itinerary snapshot while keeping the row.
func (s *ConversationState) Reset(userID *int64, lastQuery *string, now time.Time) {
	if userID != nil {
		s.UserID = userID
	}
	s.CurrentRevisionID = nil
	s.TripProfile = nil
	s.CurrentItinerary = nil
	if lastQuery != nil {
		s.LastUserQuery = lastQuery
	}
	s.UpdatedAt = now
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}"))
}
