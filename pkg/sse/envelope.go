package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Envelope wraps the payload of every typed event.
type Envelope struct {
	RequestID      string  `json:"request_id"`
	ConversationID string  `json:"conversation_id"`
	RevisionID     *string `json:"revision_id"`
	Timestamp      string  `json:"timestamp"`
	Payload        any     `json:"payload"`
}

// NewEnvelope stamps the payload with the current UTC time.
func NewEnvelope(requestID, conversationID string, revisionID *string, payload any) Envelope {
	return Envelope{
		RequestID:      requestID,
		ConversationID: conversationID,
		RevisionID:     revisionID,
		Timestamp:      time.Now().UTC().Format(time.RFC3339Nano),
		Payload:        payload,
	}
}

// EventBlock renders "event: <name>\ndata: <json>\n\n".
func EventBlock(name string, v any) ([]byte, error) {
	data, err := DataBlock(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(name)+len(data)+8)
	out = append(out, "event: "...)
	out = append(out, name...)
	out = append(out, '\n')
	return append(out, data...), nil
}

// DataBlock renders "data: <json>\n\n". HTML characters are not escaped.
func DataBlock(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode event data: %w", err)
	}
	// Encode terminates with a newline; the block supplies its own.
	body := bytes.TrimRight(buf.Bytes(), "\n")

	out := make([]byte, 0, len(body)+8)
	out = append(out, "data: "...)
	out = append(out, body...)
	return append(out, '\n', '\n'), nil
}
