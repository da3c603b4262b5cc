// Package sse encodes conversation events as Server-Sent Events.
//
// Each typed event is written as an "event:" line followed by a "data:" line
// carrying an Envelope. Events that carry human-readable text are followed by a
// bare "data:" block holding the text as a JSON string, for clients that only
// consume plain data lines.
package sse
