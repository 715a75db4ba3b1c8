package models

import "time"

// View is an immutable, fully reconciled snapshot of everything the
// presentation layer renders. A new View replaces the old one atomically.
type View struct {
	Endpoint      string                   `json:"endpoint"`
	Statuses      map[Channel]StreamStatus `json:"statuses"`
	Connections   []ConnectionRecord       `json:"connections"`
	UploadTotal   int64                    `json:"upload_total"`
	DownloadTotal int64                    `json:"download_total"`
	Traffic       []SpeedSample            `json:"traffic"`
	Memory        []MemorySample           `json:"memory"`
	Logs          []LogRecord              `json:"logs"`
	Version       uint64                   `json:"version"`
	UpdatedAt     time.Time                `json:"updated_at"`
}
