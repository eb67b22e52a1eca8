package telemetry

import (
	"context"
	"sync"

	"github.com/rhealabs/raengine/internal/clock"
)

// Sink is the durable backing store a Recorder appends to. The concrete
// implementation is internal/store.TelemetryStore; a nil Sink is valid —
// events are then kept only in the bounded in-memory ring, useful for
// short-lived CLI invocations that don't need history across runs.
type Sink interface {
	Append(ctx context.Context, e Event) error
	Query(ctx context.Context, f Filter) ([]Event, error)
}

// Filter narrows a telemetry query (spec §6 analytics interface).
type Filter struct {
	RunID  string
	Kind   EventKind
	Since  *int64 // unix millis
	Until  *int64
	Limit  int
}

const defaultQueryLimit = 500
const defaultRingSize = 10000

// Recorder is the append-only in-process event log, mirroring to Sink
// when present. FIFO-bounded in memory exactly like the teacher's
// AuditTrail.Record.
type Recorder struct {
	mu      sync.Mutex
	clock   clock.Clock
	sink    Sink
	ring    []Event
	maxSize int
}

// NewRecorder returns a Recorder of the given in-memory capacity (0 uses
// defaultRingSize), optionally mirroring to sink.
func NewRecorder(c clock.Clock, sink Sink, maxSize int) *Recorder {
	if c == nil {
		c = clock.Real{}
	}
	if maxSize <= 0 {
		maxSize = defaultRingSize
	}
	return &Recorder{clock: c, sink: sink, maxSize: maxSize}
}

// Emit appends e to the in-memory ring (evicting the oldest entry once
// full) and, if a Sink is configured, persists it. Persistence failures
// are returned but never drop the in-memory copy — telemetry must never
// block or unwind the engine's own control flow over a storage hiccup.
func (r *Recorder) Emit(ctx context.Context, e Event) error {
	r.mu.Lock()
	if len(r.ring) >= r.maxSize {
		r.ring = append(r.ring[1:], e)
	} else {
		r.ring = append(r.ring, e)
	}
	r.mu.Unlock()

	if r.sink == nil {
		return nil
	}
	return r.sink.Append(ctx, e)
}

// Recent returns up to limit most-recent in-memory events, newest first.
// This never touches the Sink — use Query for durable, cross-run history.
func (r *Recorder) Recent(limit int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > len(r.ring) {
		limit = len(r.ring)
	}
	out := make([]Event, limit)
	for i := 0; i < limit; i++ {
		out[i] = r.ring[len(r.ring)-1-i]
	}
	return out
}

// Query asks the Sink for durable events matching f. Returns an empty
// slice with no error if no Sink is configured.
func (r *Recorder) Query(ctx context.Context, f Filter) ([]Event, error) {
	if r.sink == nil {
		return nil, nil
	}
	if f.Limit <= 0 {
		f.Limit = defaultQueryLimit
	}
	return r.sink.Query(ctx, f)
}

// Now exposes the recorder's clock so callers stamp events consistently.
func (r *Recorder) Now() (now int64) {
	return r.clock.Now().UnixMilli()
}
