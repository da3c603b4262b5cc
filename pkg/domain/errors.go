package domain

import "errors"

// ErrEpisodeNotFound is returned when a conversation has no pending clarification episode.
var ErrEpisodeNotFound = errors.New("episode not found")

// ErrStateNotFound is returned when a conversation ID cannot be found in the state store.
var ErrStateNotFound = errors.New("conversation state not found")

// ErrEmptyQuery is returned when a request carries no usable query text.
var ErrEmptyQuery = errors.New("query is empty")
