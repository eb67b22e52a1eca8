// Package resilience guards the vision/OCR call path (C8): a sliding-window
// rate limiter bounds call volume, a circuit breaker trips on consecutive
// failures. The rate limiter is a direct generalization of the teacher's
// hand-rolled windowed-counter FSM
// (internal/capture/circuit_breaker.go RecordEvents/CheckRateLimit/
// tickRateWindow), parameterized instead of hardcoded to one threshold;
// the breaker wraps sony/gobreaker, the one place in the retrieved corpus
// that dependency is actually used
// (jordigilh-kubernaut/test/integration/notification/suite_test.go).
package resilience

import (
	"sync"
	"time"

	"github.com/rhealabs/raengine/internal/clock"
)

// RateLimiter rejects calls once more than Limit have occurred within the
// trailing Window. Unlike a token bucket, the window is a hard sliding
// boundary: calls outside Window are simply forgotten, matching the
// teacher's "windowEventCount resets when window elapses" behavior.
type RateLimiter struct {
	mu     sync.Mutex
	clock  clock.Clock
	limit  int
	window time.Duration
	events []time.Time
}

// NewRateLimiter returns a limiter rejecting calls beyond limit per window.
func NewRateLimiter(c clock.Clock, limit int, window time.Duration) *RateLimiter {
	if c == nil {
		c = clock.Real{}
	}
	return &RateLimiter{clock: c, limit: limit, window: window}
}

// Allow records the current call and reports whether it is within budget.
// A rejected call (false) is still not counted as a new event — the
// caller backed off, it did not attempt.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	cutoff := now.Add(-r.window)
	kept := r.events[:0]
	for _, t := range r.events {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.events = kept
	if len(r.events) >= r.limit {
		return false
	}
	r.events = append(r.events, now)
	return true
}

// CurrentRate reports how many calls fall within the trailing window right
// now, for telemetry/analytics snapshots.
func (r *RateLimiter) CurrentRate() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	cutoff := now.Add(-r.window)
	n := 0
	for _, t := range r.events {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}
