package models

import "time"

// SpeedSample is one smoothed traffic point
type SpeedSample struct {
	Timestamp time.Time `json:"timestamp"`
	Up        float64   `json:"up"`   // bytes/sec
	Down      float64   `json:"down"` // bytes/sec
}

func (s SpeedSample) At() time.Time { return s.Timestamp }

// MemorySample is one smoothed memory point
type MemorySample struct {
	Timestamp time.Time `json:"timestamp"`
	InUse     float64   `json:"inuse"`
}

func (s MemorySample) At() time.Time { return s.Timestamp }
