package models

import "time"

// SelfStatus reports resource usage of the dashboard itself
type SelfStatus struct {
	Process    *ProcessStatus `json:"process"`
	Goroutines int            `json:"goroutines"`
	Uptime     string         `json:"uptime"`
	Timestamp  time.Time      `json:"timestamp"`
}
