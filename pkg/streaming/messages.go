// Package streaming defines the wire protocol between the replay server
// and its viewers. Every message is an Envelope; payload schemas are
// versioned by message type.
package streaming

import "encoding/json"

// Message type constants for the replay protocol.
const (
	// client -> server
	TypePlay     = "play"
	TypePause    = "pause"
	TypeSeek     = "seek"
	TypeSetSpeed = "set_speed"

	// server -> client
	TypeSnapshot     = "snapshot"
	TypeSessionState = "session_state"
	TypeError        = "error"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ControlPayload carries the argument of seek and set_speed commands.
// Play and pause send no payload.
type ControlPayload struct {
	Time  float64 `json:"time,omitempty"`
	Speed float64 `json:"speed,omitempty"`
}

// SessionStatePayload reports the playback state after a control command
// is applied and when a viewer first attaches.
type SessionStatePayload struct {
	SessionID     string  `json:"sessionId"`
	RaceID        uint    `json:"raceId"`
	State         string  `json:"state"` // STOPPED, RUNNING, ENDED
	Time          float64 `json:"time"`
	Speed         float64 `json:"speed"`
	TotalDuration float64 `json:"totalDuration"`
}

// ErrorPayload reports a rejected command.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}
