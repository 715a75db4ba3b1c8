package services

import "time"

// ErrorWindow counts failures since the first failure of the current window
type ErrorWindow struct {
	Count        int
	FirstFailure time.Time
}

// ThresholdPolicy decides when repeated failures stop being transient
type ThresholdPolicy struct {
	Window    time.Duration
	Threshold int
}

// DefaultThresholdPolicy trips on 3 failures within 5 seconds
func DefaultThresholdPolicy() ThresholdPolicy {
	return ThresholdPolicy{
		Window:    5 * time.Second,
		Threshold: 3,
	}
}

// Record adds one failure at now. An empty or expired window restarts at a
// count of one; otherwise the count grows and trips at the threshold.
func (p ThresholdPolicy) Record(w ErrorWindow, now time.Time) (ErrorWindow, bool) {
	if w.Count == 0 || now.Sub(w.FirstFailure) > p.Window {
		return ErrorWindow{Count: 1, FirstFailure: now}, p.Threshold <= 1
	}
	w.Count++
	return w, w.Count >= p.Threshold
}

// Trip returns a window already at the threshold, for failures that retrying
// cannot fix.
func (p ThresholdPolicy) Trip(w ErrorWindow, now time.Time) ErrorWindow {
	if w.Count == 0 {
		w.FirstFailure = now
	}
	if w.Count < p.Threshold {
		w.Count = p.Threshold
	}
	return w
}
