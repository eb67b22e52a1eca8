// Package engine implements C6, the Decision Engine: the per-Step
// orchestration that ties together healing-cache lookup, fallback-chain
// resolution, vision fallback, actionability waiting, context
// disambiguation, and dispatch, emitting telemetry at every stage.
// Grounded on the teacher's ExecutePlayback/executeAction/
// executeClickWithHealing (internal/recording/playback_engine.go):
// run-a-recording, execute-one-action-continue-on-error, try-strategies-
// in-order are all kept; the fixed 4-rung ladder is replaced by the
// confidence-ranked 7-strategy FallbackChain and cache-aware healing.
package engine

import (
	"context"
	"time"

	"github.com/rhealabs/raengine/internal/autowait"
	"github.com/rhealabs/raengine/internal/clock"
	"github.com/rhealabs/raengine/internal/dispatch"
	"github.com/rhealabs/raengine/internal/errs"
	"github.com/rhealabs/raengine/internal/healing"
	"github.com/rhealabs/raengine/internal/locator"
	"github.com/rhealabs/raengine/internal/pagedriver"
	"github.com/rhealabs/raengine/internal/resilience"
	"github.com/rhealabs/raengine/internal/telemetry"
	"github.com/rhealabs/raengine/internal/types"
	"github.com/rhealabs/raengine/internal/validate"
	"github.com/rhealabs/raengine/internal/vision"
)

// Engine wires the located-element pipeline for a single page/run.
type Engine struct {
	Driver           pagedriver.Driver
	Cache            *healing.Cache
	Recorder         *telemetry.Recorder
	OCR              vision.OCRProvider
	OCRConfidenceMin float64 // spec §6 OCR_CONFIDENCE_MIN, default 0.60; 0 means "use vision's own floor"
	VisionLimit      *resilience.RateLimiter
	VisionBreak      *resilience.Breaker
	Clock            clock.Clock
}

// StepResult is the outcome of executing one Step.
type StepResult struct {
	StepID     string
	Strategy   types.StrategyKind
	Healed     bool
	Confidence float64
	DurationMs int64
	Err        error
}

// ExecuteStep locates, validates, and dispatches step against pageURL.
// ActionConditionalClick steps are rejected here — callers must route
// those through internal/conditional.Run instead, since a conditional
// click's lifecycle (poll, click, re-poll) has no single "located node".
func (e *Engine) ExecuteStep(ctx context.Context, runID, pageURL string, step types.Step) StepResult {
	start := e.now()
	res := StepResult{StepID: step.ID}

	if step.Action == types.ActionConditionalClick {
		res.Err = errs.New(errs.DispatchFailed, "conditional-click steps must run through internal/conditional.Run")
		return res
	}

	frame, err := e.Driver.ResolveFrame(ctx, step.Bundle.IframeChain)
	if err != nil {
		res.Err = err
		e.emit(ctx, runID, step.ID, telemetry.EventStrategyAttempt, "", false, 0)
		return res
	}

	key := healing.KeyFor(pageURL, step)
	chain := e.chainFor(step, key)

	node, pt, kind, confidence, healed, err := e.resolveTarget(ctx, runID, step, frame, chain)
	if err != nil {
		e.recordHealingOutcome(ctx, key, kind, false, healed)
		res.Err = err
		res.DurationMs = int64(e.now().Sub(start) / time.Millisecond)
		return res
	}

	if node != "" {
		info, err := autowait.WaitActionable(ctx, e.Clock, e.Driver, frame, node, time.Duration(step.ActionabilityMs)*time.Millisecond)
		if err != nil {
			e.recordHealingOutcome(ctx, key, kind, false, healed)
			res.Err = err
			return res
		}
		expected := validate.ContextClass(step.ExpectedContextClass())
		if expected != "" {
			if verr := validate.Check(expected, validate.Classify(info)); verr != nil {
				e.recordHealingOutcome(ctx, key, kind, false, healed)
				res.Err = verr
				return res
			}
		}
		if derr := dispatch.Dispatch(ctx, e.Driver, frame, node, pt, step); derr != nil {
			e.recordHealingOutcome(ctx, key, kind, false, healed)
			res.Err = derr
			return res
		}
	} else if pt != nil {
		// Vision/coordinates resolved a pixel point with no node handle —
		// actionability and context checks need a describable node, so a
		// blind point click skips both and dispatches directly.
		if derr := dispatch.Dispatch(ctx, e.Driver, frame, node, pt, step); derr != nil {
			e.recordHealingOutcome(ctx, key, kind, false, healed)
			res.Err = derr
			return res
		}
	}

	e.recordHealingOutcome(ctx, key, kind, true, healed)
	res.Strategy = kind
	res.Confidence = confidence
	res.Healed = healed
	res.DurationMs = int64(e.now().Sub(start) / time.Millisecond)
	e.emit(ctx, runID, step.ID, telemetry.EventStrategySucceeded, kind, true, res.DurationMs)
	return res
}

// chainFor builds the chain to resolve step's target, promoting a live
// healing-cache hit to the front as a synthetic Cached entry (spec §4.2
// step 1).
func (e *Engine) chainFor(step types.Step, key healing.Key) types.FallbackChain {
	base := step.FallbackChain
	var chain types.FallbackChain
	if base != nil {
		chain = *base
	} else {
		chain = locator.BuildChain(step.Bundle)
	}

	if e.Cache == nil {
		return chain
	}
	entry, ok := e.Cache.Lookup(key)
	if !ok {
		return chain
	}
	cached := types.ChainEntry{
		Kind:               types.StrategyCached,
		Args:               entry.HealedArgs,
		ExpectedConfidence: 1.0,
		TimeoutMs:          int(locator.DefaultAttemptTimeout / time.Millisecond),
	}
	chain.Entries = append([]types.ChainEntry{cached}, chain.Entries...)
	return chain
}

// resolveTarget runs the DOM-queryable strategies via locator.Resolve,
// then falls back to vision OCR and finally recorded coordinates when the
// chain carries those rungs, DOM resolution missed, and the step's action
// is a click (vision/coordinates resolve a pixel point, not a node handle,
// so they cannot serve input/select/enter steps that need one).
func (e *Engine) resolveTarget(ctx context.Context, runID string, step types.Step, frame pagedriver.FrameHandle, chain types.FallbackChain) (pagedriver.NodeHandle, *pagedriver.Point, types.StrategyKind, float64, bool, error) {
	res, err := locator.Resolve(ctx, e.Driver, frame, chain)
	for _, att := range res.Attempts {
		e.emit(ctx, runID, step.ID, telemetry.EventStrategyAttempt, att.Kind, att.Matched && att.Err == nil, att.Duration.Milliseconds())
	}
	if err == nil {
		return res.Node, nil, res.Kind, res.Confidence, res.Kind != firstConcreteKind(chain), nil
	}

	isClick := step.Action == types.ActionClick || step.Action == types.ActionConditionalClick
	if isClick && hasKind(chain, types.StrategyVision) && step.Bundle.VisibleText != "" {
		if e.visionAllowed() {
			matches, verr := e.visionCall(ctx, frame, step.Bundle.VisibleText)
			if verr == nil && len(matches) > 0 {
				pt := vision.Center(matches[0].Box)
				e.emit(ctx, runID, step.ID, telemetry.EventStrategySucceeded, types.StrategyVision, true, 0)
				return "", &pt, types.StrategyVision, matches[0].Confidence, true, nil
			}
		} else {
			e.emit(ctx, runID, step.ID, telemetry.EventRateLimited, types.StrategyVision, false, 0)
		}
	}

	if isClick && hasKind(chain, types.StrategyCoordinates) && step.RecordedPointer != nil {
		pt := pagedriver.Point{X: step.RecordedPointer.X, Y: step.RecordedPointer.Y}
		e.emit(ctx, runID, step.ID, telemetry.EventStrategySucceeded, types.StrategyCoordinates, true, 0)
		return "", &pt, types.StrategyCoordinates, types.ExpectedConfidence[types.StrategyCoordinates], true, nil
	}

	return "", nil, "", 0, false, err
}

func (e *Engine) visionAllowed() bool {
	if e.VisionLimit != nil && !e.VisionLimit.Allow() {
		return false
	}
	return true
}

func (e *Engine) visionCall(ctx context.Context, frame pagedriver.FrameHandle, text string) ([]vision.Match, error) {
	if e.VisionBreak == nil {
		return vision.Locate(ctx, e.Driver, e.OCR, frame, text, e.OCRConfidenceMin)
	}
	var matches []vision.Match
	err := e.VisionBreak.Call(ctx, func(ctx context.Context) error {
		m, err := vision.Locate(ctx, e.Driver, e.OCR, frame, text, e.OCRConfidenceMin)
		matches = m
		return err
	})
	return matches, err
}

func firstConcreteKind(chain types.FallbackChain) types.StrategyKind {
	sorted := chain.Sorted()
	for _, e := range sorted {
		if e.Kind != types.StrategyCached {
			return e.Kind
		}
	}
	return ""
}

func hasKind(chain types.FallbackChain, kind types.StrategyKind) bool {
	for _, e := range chain.Entries {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// recordHealingOutcome upserts the healing cache only when a heal actually
// occurred — success via a non-primary strategy, or a cache-promoted hit
// (spec §4.2 step 7: "On success with a non-primary strategy... upsert the
// healing cache. On cache-promoted success, increment success_count.").
// A first-try primary-strategy success leaves the cache untouched so it
// isn't polluted with a row for every ordinary step.
func (e *Engine) recordHealingOutcome(ctx context.Context, key healing.Key, kind types.StrategyKind, success, healed bool) {
	if e.Cache == nil || kind == "" {
		return
	}
	if success {
		if healed {
			_ = e.Cache.RecordSuccess(ctx, key, kind, types.LocatorArgs{}, types.ExpectedConfidence[kind])
		}
		return
	}
	_ = e.Cache.RecordFailure(ctx, key)
}

func (e *Engine) emit(ctx context.Context, runID, stepID string, kind telemetry.EventKind, strategy types.StrategyKind, success bool, durationMs int64) {
	if e.Recorder == nil {
		return
	}
	ev := telemetry.NewEvent(runID, kind, e.now())
	ev.StepID = stepID
	ev.Strategy = strategy
	ev.Success = success
	ev.DurationMs = durationMs
	_ = e.Recorder.Emit(ctx, ev)
}

func (e *Engine) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock.Now()
}
