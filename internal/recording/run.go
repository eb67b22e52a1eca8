package recording

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rhealabs/raengine/internal/clock"
	"github.com/rhealabs/raengine/internal/conditional"
	"github.com/rhealabs/raengine/internal/engine"
	"github.com/rhealabs/raengine/internal/errs"
	"github.com/rhealabs/raengine/internal/telemetry"
	"github.com/rhealabs/raengine/internal/types"
)

// StepOutcome is one Step's result within a run, covering both the
// ordinary engine.StepResult and the conditional.Outcome shapes.
type StepOutcome struct {
	StepID     string
	Action     types.ActionKind
	Strategy   types.StrategyKind
	Healed     bool
	Err        error
	Conditional *conditional.Outcome
}

// Summary is the spec §3 RunSummary: what happened across an entire
// Recording playback.
type Summary struct {
	RunID         string
	RecordingID   string
	StartedAt     time.Time
	FinishedAt    time.Time
	StepsTotal    int
	StepsSucceeded int
	StepsFailed   int
	StepsHealed   int
	Outcomes      []StepOutcome
}

// Runner drives a Recording's Steps through engine.Engine and
// conditional.Run in order, continuing past a failed step rather than
// aborting the run — a single broken step should not silently hide the
// results of the steps after it (spec §4.6), mirroring the teacher's
// ExecutePlayback "continue to next action regardless of error" policy
// (internal/recording/playback_engine.go, now adapted rather than copied
// since that file's RecordingManager host type was not part of the
// retrieved pack).
type Runner struct {
	Engine *engine.Engine
	Clock  clock.Clock
}

// Play executes every Step of rec in order against pageURL, looping back
// to rec.LoopStartIndex when rec.Loops() until ctx is cancelled, or
// running once through when looping is disabled.
func (r *Runner) Play(ctx context.Context, pageURL string, rec types.Recording) Summary {
	c := r.Clock
	if c == nil {
		c = clock.Real{}
	}
	runID := uuid.NewString()
	sum := Summary{RunID: runID, RecordingID: rec.ID, StartedAt: c.Now()}
	r.emit(ctx, runID, telemetry.EventRunStarted, c.Now())

	idx := 0
	for idx < len(rec.Steps) {
		if ctx.Err() != nil {
			break
		}
		step := rec.Steps[idx]
		outcome := r.runStep(ctx, runID, pageURL, step)
		sum.Outcomes = append(sum.Outcomes, outcome)
		sum.StepsTotal++
		if outcome.Err != nil {
			sum.StepsFailed++
		} else {
			sum.StepsSucceeded++
		}
		if outcome.Healed {
			sum.StepsHealed++
		}

		if step.DelayMs > 0 {
			c.Sleep(time.Duration(step.DelayMs) * time.Millisecond)
		} else if rec.GlobalDelayMs > 0 {
			c.Sleep(time.Duration(rec.GlobalDelayMs) * time.Millisecond)
		}

		idx++
		if idx == len(rec.Steps) && rec.Loops() {
			idx = rec.LoopStartIndex
		}
	}

	sum.FinishedAt = c.Now()
	r.emit(ctx, runID, telemetry.EventRunFinished, sum.FinishedAt)
	return sum
}

func (r *Runner) emit(ctx context.Context, runID string, kind telemetry.EventKind, now time.Time) {
	if r.Engine == nil || r.Engine.Recorder == nil {
		return
	}
	_ = r.Engine.Recorder.Emit(ctx, telemetry.NewEvent(runID, kind, now))
}

func (r *Runner) runStep(ctx context.Context, runID, pageURL string, step types.Step) StepOutcome {
	out := StepOutcome{StepID: step.ID, Action: step.Action}

	if step.Action == types.ActionConditionalClick {
		frame, err := r.Engine.Driver.ResolveFrame(ctx, step.Bundle.IframeChain)
		if err != nil {
			out.Err = err
			return out
		}
		cfg := types.ConditionalConfig{}
		if step.Conditional != nil {
			cfg = *step.Conditional
		}
		co := conditional.Run(ctx, r.Clock, r.Engine.Driver, r.Engine.OCR, r.Engine.Recorder, runID, step.ID, frame, cfg)
		out.Conditional = &co
		if co.FinalState != conditional.StateSucceeded {
			out.Err = errs.New(errs.NotFound, "conditional click did not succeed: "+string(co.FinalState))
		}
		return out
	}

	res := r.Engine.ExecuteStep(ctx, runID, pageURL, step)
	out.Strategy = res.Strategy
	out.Healed = res.Healed
	out.Err = res.Err
	return out
}
