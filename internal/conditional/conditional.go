// Package conditional implements C7: the conditional-click polling engine
// used for permission-prompt-style dialogs that may or may not appear.
// The state machine is Polling -> Clicked -> Polling -> ... until one of
// Succeeded, TimedOut, MaxClicksReached, or Cancelled. Grounded on the
// teacher's checkPilotReady poll-age branching
// (cmd/dev-console/pilot.go PluginReadiness/checkPilotReady), generalized
// from a one-shot readiness poll into a repeating click-then-poll loop.
package conditional

import (
	"context"
	"strings"
	"time"

	"github.com/rhealabs/raengine/internal/clock"
	"github.com/rhealabs/raengine/internal/pagedriver"
	"github.com/rhealabs/raengine/internal/telemetry"
	"github.com/rhealabs/raengine/internal/types"
	"github.com/rhealabs/raengine/internal/vision"
)

// State is one state of the conditional-click FSM (spec §4.5).
type State string

const (
	StatePolling          State = "polling"
	StateClicked          State = "clicked"
	StateSucceeded        State = "succeeded"
	StateTimedOut         State = "timed_out"
	StateMaxClicksReached State = "max_clicks_reached"
	StateCancelled        State = "cancelled"
)

// DefaultTimeout and DefaultPoll are the spec §4.5 defaults.
const (
	DefaultTimeout = 120 * time.Second
	DefaultPoll    = 500 * time.Millisecond
	DefaultMaxClicks = 10
)

// Outcome is the terminal result of a Run.
type Outcome struct {
	FinalState State
	Clicks     int
	Elapsed    time.Duration
}

// Run polls frame for any of cfg.Labels via OCR; each time a label is
// found it is clicked, and polling resumes. A label is never clicked
// twice in a row without an intervening OCR cycle finding it again — the
// loop always re-observes before re-clicking. Polling ends when
// cfg.SuccessLabel is observed (Succeeded), cfg.MaxClicks clicks have
// happened (MaxClicksReached), cfg.TimeoutMs elapses (TimedOut), or ctx
// is cancelled (Cancelled).
func Run(ctx context.Context, c clock.Clock, drv pagedriver.Driver, provider vision.OCRProvider, rec *telemetry.Recorder, runID, stepID string, frame pagedriver.FrameHandle, cfg types.ConditionalConfig) Outcome {
	if c == nil {
		c = clock.Real{}
	}
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	poll := time.Duration(cfg.PollMs) * time.Millisecond
	if poll <= 0 {
		poll = DefaultPoll
	}
	maxClicks := cfg.MaxClicks
	if maxClicks <= 0 {
		maxClicks = DefaultMaxClicks
	}

	start := c.Now()
	deadline := start.Add(timeout)
	clicks := 0

	for {
		if ctx.Err() != nil {
			return finish(rec, ctx, runID, stepID, StateCancelled, clicks, c.Now(), start)
		}
		if !c.Now().Before(deadline) {
			return finish(rec, ctx, runID, stepID, StateTimedOut, clicks, c.Now(), start)
		}

		emitPoll(rec, ctx, runID, stepID, c.Now())
		matches := observe(ctx, drv, provider, frame, cfg.Labels, minConfidence(cfg))

		if cfg.SuccessLabel != "" {
			if m, ok := matchFor(matches, cfg.SuccessLabel); ok && m.Confidence >= minConfidence(cfg) {
				return finish(rec, ctx, runID, stepID, StateSucceeded, clicks, c.Now(), start)
			}
		}

		for _, label := range cfg.Labels {
			m, ok := matchFor(matches, label)
			if !ok || m.Confidence < minConfidence(cfg) {
				continue
			}
			pt := vision.Center(m.Box)
			if err := drv.Click(ctx, frame, "", &pt); err == nil {
				clicks++
				emitClick(rec, ctx, runID, stepID, label, c.Now())
				if cfg.PostClickDelayMs > 0 {
					select {
					case <-ctx.Done():
						return finish(rec, ctx, runID, stepID, StateCancelled, clicks, c.Now(), start)
					case <-c.After(time.Duration(cfg.PostClickDelayMs) * time.Millisecond):
					}
				}
				if clicks >= maxClicks {
					return finish(rec, ctx, runID, stepID, StateMaxClicksReached, clicks, c.Now(), start)
				}
			}
			break
		}

		select {
		case <-ctx.Done():
			return finish(rec, ctx, runID, stepID, StateCancelled, clicks, c.Now(), start)
		case <-c.After(poll):
		}
	}
}

// defaultConfidenceMin is spec §6's wait_and_click confidence_min default.
const defaultConfidenceMin = 0.7

func minConfidence(cfg types.ConditionalConfig) float64 {
	if cfg.ConfidenceMin > 0 {
		return cfg.ConfidenceMin
	}
	return defaultConfidenceMin
}

func observe(ctx context.Context, drv pagedriver.Driver, provider vision.OCRProvider, frame pagedriver.FrameHandle, labels []string, confidenceMin float64) []vision.Match {
	var all []vision.Match
	for _, label := range labels {
		matches, err := vision.Locate(ctx, drv, provider, frame, label, confidenceMin)
		if err != nil {
			continue
		}
		all = append(all, matches...)
	}
	return all
}

func matchFor(matches []vision.Match, label string) (vision.Match, bool) {
	for _, m := range matches {
		if m.Text == label || strings.Contains(strings.ToLower(m.Text), strings.ToLower(label)) {
			return m, true
		}
	}
	return vision.Match{}, false
}

func finish(rec *telemetry.Recorder, ctx context.Context, runID, stepID string, state State, clicks int, now, start time.Time) Outcome {
	if rec != nil {
		ev := telemetry.NewEvent(runID, telemetry.EventConditionalClick, now)
		ev.StepID = stepID
		ev.Success = state == StateSucceeded
		ev.Detail = map[string]any{"final_state": string(state), "clicks": clicks}
		_ = rec.Emit(ctx, ev)
	}
	return Outcome{FinalState: state, Clicks: clicks, Elapsed: now.Sub(start)}
}

func emitPoll(rec *telemetry.Recorder, ctx context.Context, runID, stepID string, now time.Time) {
	if rec == nil {
		return
	}
	ev := telemetry.NewEvent(runID, telemetry.EventConditionalPoll, now)
	ev.StepID = stepID
	_ = rec.Emit(ctx, ev)
}

func emitClick(rec *telemetry.Recorder, ctx context.Context, runID, stepID, label string, now time.Time) {
	if rec == nil {
		return
	}
	ev := telemetry.NewEvent(runID, telemetry.EventConditionalClick, now)
	ev.StepID = stepID
	ev.Success = true
	ev.Detail = map[string]any{"label": label}
	_ = rec.Emit(ctx, ev)
}
