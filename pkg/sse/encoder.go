package sse

import (
	"fmt"
	"io"

	"github.com/aretw0/tripgate/pkg/domain"
)

// Flusher is implemented by writers that buffer output, such as http.ResponseWriter.
type Flusher interface {
	Flush()
}

// Event is a typed stream event. An Event without Type only writes its Text.
type Event struct {
	Type       domain.EventType `json:"type,omitempty"`
	RevisionID *string          `json:"revision_id,omitempty"`
	Payload    any              `json:"payload,omitempty"`
	// Text, when set, is repeated as a plain data block after the event.
	Text string `json:"text,omitempty"`
}

// Encoder writes events for one request.
type Encoder struct {
	w              io.Writer
	requestID      string
	conversationID string
}

// NewEncoder creates an encoder bound to a request and conversation.
func NewEncoder(w io.Writer, requestID, conversationID string) *Encoder {
	return &Encoder{w: w, requestID: requestID, conversationID: conversationID}
}

// Emit writes the event and its text block, then flushes.
func (e *Encoder) Emit(ev Event) error {
	var block []byte
	if ev.Type != "" {
		var err error
		block, err = EventBlock(string(ev.Type), NewEnvelope(e.requestID, e.conversationID, ev.RevisionID, ev.Payload))
		if err != nil {
			return err
		}
	}
	if ev.Text != "" {
		text, err := DataBlock(ev.Text)
		if err != nil {
			return err
		}
		block = append(block, text...)
	}
	if _, err := e.w.Write(block); err != nil {
		return fmt.Errorf("failed to write event %q: %w", ev.Type, err)
	}
	if f, ok := e.w.(Flusher); ok {
		f.Flush()
	}
	return nil
}
