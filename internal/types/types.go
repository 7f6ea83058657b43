package types

import (
	"encoding/json"
)

// ClientMessage is the inbound envelope. Payload is decoded per event by the ws layer.
type ClientMessage struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage is the outbound envelope. Payload is one of the pkg/types payloads.
type ServerMessage struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}
