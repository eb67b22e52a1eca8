// Package telemetry implements C10: an append-only event log plus the
// analytics aggregation spec §4.9 requires (per-strategy success rate,
// mean/p95 latency, cache hit rate, breaker transitions over a time
// range). Grounded on the teacher's AuditTrail
// (internal/audit/audit_trail.go): a mutex-guarded, FIFO-bounded,
// queryable append-only buffer, generalized from tool-invocation audit
// records to engine run telemetry, and backed by a real persister instead
// of staying purely in-memory.
package telemetry

import (
	"time"

	"github.com/google/uuid"

	"github.com/rhealabs/raengine/internal/types"
)

// EventKind enumerates the event types a run emits (spec §3 TelemetryEvent).
type EventKind string

const (
	EventStrategyAttempt  EventKind = "strategy_attempt"
	EventStrategySucceeded EventKind = "strategy_succeeded"
	EventHealed           EventKind = "healed"
	EventCacheHit         EventKind = "cache_hit"
	EventCacheMiss        EventKind = "cache_miss"
	EventCacheEvicted     EventKind = "cache_evicted"
	EventContextMismatch  EventKind = "context_mismatch"
	EventConditionalPoll  EventKind = "conditional_poll"
	EventConditionalClick EventKind = "conditional_click"
	EventBreakerStateChange EventKind = "breaker_state_change"
	EventRateLimited      EventKind = "rate_limited"
	EventRunStarted       EventKind = "run_started"
	EventRunFinished      EventKind = "run_finished"
)

// Event is one append-only telemetry record (spec §3 TelemetryEvent).
type Event struct {
	ID         string         `json:"id"`
	RunID      string         `json:"run_id"`
	StepID     string         `json:"step_id,omitempty"`
	Kind       EventKind      `json:"kind"`
	Strategy   types.StrategyKind `json:"strategy,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`
	Success    bool           `json:"success"`
	Detail     map[string]any `json:"detail,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewEvent stamps a fresh event with a random ID and the given timestamp
// (callers pass clock.Clock.Now() rather than letting this function read
// wall time, keeping telemetry deterministic under tests).
func NewEvent(runID string, kind EventKind, now time.Time) Event {
	return Event{ID: uuid.NewString(), RunID: runID, Kind: kind, Timestamp: now}
}
