// Package hub fans out library events and playback frames to websocket
// clients using a channel-based broadcast loop.
package hub

import (
	"encoding/json"
	"fmt"
)

// Message kinds sent to clients.
const (
	KindEvent = "event"
	KindFrame = "frame"
	KindDone  = "done"
)

// Message is a pre-encoded text frame queued for clients.
type Message struct {
	Kind string
	Data []byte
}

// Envelope is the JSON shape of every message.
type Envelope struct {
	Kind string `json:"kind"`
	Data any    `json:"data,omitempty"`
}

// Encode wraps v in an envelope of the given kind.
func Encode(kind string, v any) (Message, error) {
	data, err := json.Marshal(Envelope{Kind: kind, Data: v})
	if err != nil {
		return Message{}, fmt.Errorf("hub: encode %s: %w", kind, err)
	}
	return Message{Kind: kind, Data: data}, nil
}
