package services

import (
	"time"

	"corewatch/internal/models"
)

const (
	DefaultSmoothingAlpha = 0.1
	DefaultSpeedPoints    = 30
	DefaultMemoryPoints   = 60
	DefaultLogEntries     = 200
)

// Ring is a fixed-capacity buffer that evicts its oldest item once full
type Ring[T any] struct {
	items []T
	head  int // next write position
	size  int
}

// NewRing creates a ring holding at most capacity items
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends v, evicting the oldest item when full
func (r *Ring[T]) Push(v T) {
	r.items[r.head] = v
	r.head = (r.head + 1) % len(r.items)
	if r.size < len(r.items) {
		r.size++
	}
}

// Values returns a copy of the items, oldest first
func (r *Ring[T]) Values() []T {
	out := make([]T, 0, r.size)
	start := (r.head - r.size + len(r.items)) % len(r.items)
	for i := 0; i < r.size; i++ {
		out = append(out, r.items[(start+i)%len(r.items)])
	}
	return out
}

func (r *Ring[T]) Len() int { return r.size }
func (r *Ring[T]) Cap() int { return len(r.items) }

// Reset drops every item
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.head = 0
	r.size = 0
}

// Smoother applies first-order exponential smoothing. The first sample is
// passed through unchanged.
type Smoother struct {
	alpha  float64
	value  float64
	seeded bool
}

// NewSmoother creates a smoother; alpha outside (0,1] falls back to the default
func NewSmoother(alpha float64) Smoother {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultSmoothingAlpha
	}
	return Smoother{alpha: alpha}
}

// Next folds v into the smoothed value and returns it
func (s *Smoother) Next(v float64) float64 {
	if !s.seeded {
		s.value = v
		s.seeded = true
		return v
	}
	s.value = s.value*(1-s.alpha) + v*s.alpha
	return s.value
}

// Reset forgets the smoothed value so the next sample seeds again
func (s *Smoother) Reset() {
	s.value = 0
	s.seeded = false
}

// TrafficSeries smooths /traffic frames into a bounded chart series
type TrafficSeries struct {
	up, down Smoother
	samples  *Ring[models.SpeedSample]
}

// NewTrafficSeries creates a series holding capacity points
func NewTrafficSeries(alpha float64, capacity int) *TrafficSeries {
	return &TrafficSeries{
		up:      NewSmoother(alpha),
		down:    NewSmoother(alpha),
		samples: NewRing[models.SpeedSample](capacity),
	}
}

// Add records one frame and returns the smoothed sample
func (t *TrafficSeries) Add(frame models.Traffic, at time.Time) models.SpeedSample {
	sample := models.SpeedSample{
		Timestamp: at,
		Up:        t.up.Next(float64(frame.Up)),
		Down:      t.down.Next(float64(frame.Down)),
	}
	t.samples.Push(sample)
	return sample
}

// Samples returns the series, oldest first
func (t *TrafficSeries) Samples() []models.SpeedSample {
	return t.samples.Values()
}

func (t *TrafficSeries) Reset() {
	t.up.Reset()
	t.down.Reset()
	t.samples.Reset()
}

// MemorySeries smooths /memory frames into a bounded chart series
type MemorySeries struct {
	inuse   Smoother
	samples *Ring[models.MemorySample]
}

// NewMemorySeries creates a series holding capacity points
func NewMemorySeries(alpha float64, capacity int) *MemorySeries {
	return &MemorySeries{
		inuse:   NewSmoother(alpha),
		samples: NewRing[models.MemorySample](capacity),
	}
}

// Add records one frame and returns the smoothed sample
func (m *MemorySeries) Add(frame models.Memory, at time.Time) models.MemorySample {
	sample := models.MemorySample{
		Timestamp: at,
		InUse:     m.inuse.Next(float64(frame.InUse)),
	}
	m.samples.Push(sample)
	return sample
}

// Samples returns the series, oldest first
func (m *MemorySeries) Samples() []models.MemorySample {
	return m.samples.Values()
}

func (m *MemorySeries) Reset() {
	m.inuse.Reset()
	m.samples.Reset()
}

// SamplesSince returns the samples stamped after cutoff, oldest first
func SamplesSince[T interface{ At() time.Time }](samples []T, cutoff time.Time) []T {
	filtered := make([]T, 0, len(samples))
	for _, s := range samples {
		if s.At().After(cutoff) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
