// Package throttle limits how often progress is reported.
package throttle

import (
	"sync"
	"time"
)

// SkipThrottler lets an event through at most once per period, and skips the rest.
type SkipThrottler struct {
	d time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewSkipThrottler returns a throttler whose first event always passes.
func NewSkipThrottler(d time.Duration) *SkipThrottler {
	tt := &SkipThrottler{d: d, last: time.Date(0, 0, 0, 0, 0, 0, 0, time.UTC)}
	return tt
}

// Ok reports whether the caller may proceed.
// It is safe for concurrent use.
func (tt *SkipThrottler) Ok() bool {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	now := time.Now()
	if now.Before(tt.last.Add(tt.d)) {
		return false
	}

	tt.last = now
	return true
}
