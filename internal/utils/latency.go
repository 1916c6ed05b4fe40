package utils

import (
	"sort"
	"sync"
	"time"
)

// LatencyTracker keeps the most recent duration observations in a ring and
// answers percentile queries over them. The pipeline uses one per run to
// report per-entity processing times.
type LatencyTracker struct {
	mu      sync.RWMutex
	ring    []time.Duration
	next    int
	maxSize int
}

// NewLatencyTracker creates a tracker keeping up to maxSize observations.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &LatencyTracker{ring: make([]time.Duration, 0, maxSize), maxSize: maxSize}
}

// Observe records one duration, evicting the oldest once the ring is full.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.ring) < l.maxSize {
		l.ring = append(l.ring, d)
		return
	}
	l.ring[l.next] = d
	l.next = (l.next + 1) % l.maxSize
}

// Percentile returns the duration at percentile p in [0, 100]. Zero samples
// yield zero; p is clamped to the observed range.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	l.mu.RLock()
	sorted := append([]time.Duration(nil), l.ring...)
	l.mu.RUnlock()

	if len(sorted) == 0 {
		return 0
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	switch {
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}
	return sorted[int(p/100.0*float64(len(sorted)-1))]
}

// Count reports how many observations the tracker currently holds.
func (l *LatencyTracker) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ring)
}
