package models

import "time"

// Traffic is one /traffic frame: bytes/sec over the last tick
type Traffic struct {
	Up   int64 `json:"up"`
	Down int64 `json:"down"`
}

// Memory is one /memory frame
type Memory struct {
	InUse   int64 `json:"inuse"`
	OSLimit int64 `json:"oslimit"`
}

// LogRecord is one /logs frame stamped with the time it was received
type LogRecord struct {
	Type     string    `json:"type"`
	Payload  string    `json:"payload"`
	Received time.Time `json:"received"`
}
