// Package profiler - Latency tracking for detection passes.
package profiler

import (
	"sync"
	"time"
)

// Stats is a snapshot of recorded pass latencies.
type Stats struct {
	// Count is the total number of recorded passes.
	Count int64
	// Min, Max and Avg are over all recorded passes.
	Min time.Duration
	Max time.Duration
	Avg time.Duration
	// Last is the most recent pass.
	Last time.Duration
	// WindowAvg averages the most recent samples (up to the tracker's
	// window size), tracking current rather than lifetime behavior.
	WindowAvg time.Duration
	// FPS is the pass rate implied by WindowAvg.
	FPS float64
}

// LatencyTracker records per-pass durations and derives summary statistics.
// It is safe for concurrent use.
type LatencyTracker struct {
	mu     sync.Mutex
	count  int64
	sum    time.Duration
	min    time.Duration
	max    time.Duration
	last   time.Duration
	window []time.Duration
	next   int
	filled int
}

// NewLatencyTracker creates a tracker keeping the given number of recent
// samples for the windowed average. A non-positive window defaults to 30.
func NewLatencyTracker(windowSize int) *LatencyTracker {
	if windowSize <= 0 {
		windowSize = 30
	}
	return &LatencyTracker{window: make([]time.Duration, windowSize)}
}

// Record adds one pass duration.
func (t *LatencyTracker) Record(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.count++
	t.sum += d
	t.last = d
	if t.count == 1 || d < t.min {
		t.min = d
	}
	if d > t.max {
		t.max = d
	}

	t.window[t.next] = d
	t.next = (t.next + 1) % len(t.window)
	if t.filled < len(t.window) {
		t.filled++
	}
}

// Last returns the most recent pass duration.
func (t *LatencyTracker) Last() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Stats returns a snapshot of the recorded statistics.
func (t *LatencyTracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.count == 0 {
		return Stats{}
	}

	var windowSum time.Duration
	for i := 0; i < t.filled; i++ {
		windowSum += t.window[i]
	}
	windowAvg := windowSum / time.Duration(t.filled)

	stats := Stats{
		Count:     t.count,
		Min:       t.min,
		Max:       t.max,
		Avg:       t.sum / time.Duration(t.count),
		Last:      t.last,
		WindowAvg: windowAvg,
	}
	if windowAvg > 0 {
		stats.FPS = float64(time.Second) / float64(windowAvg)
	}
	return stats
}

// Reset clears all recorded samples.
func (t *LatencyTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.count = 0
	t.sum = 0
	t.min = 0
	t.max = 0
	t.last = 0
	t.next = 0
	t.filled = 0
}
