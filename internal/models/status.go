package models

import "time"

// StreamState is the lifecycle state of one channel's stream
type StreamState string

const (
	StateDisconnected StreamState = "disconnected"
	StateConnecting   StreamState = "connecting"
	StateConnected    StreamState = "connected"
	StateError        StreamState = "error"
	StatePaused       StreamState = "paused"
)

// StreamStatus is what the presentation layer renders for a channel.
type StreamStatus struct {
	Channel      Channel     `json:"channel"`
	State        StreamState `json:"state"`
	Message      string      `json:"message,omitempty"`
	SessionID    string      `json:"session_id,omitempty"`
	RetryCount   int         `json:"retry_count"`
	RetryPending bool        `json:"retry_pending"`
	Since        time.Time   `json:"since"`
}
