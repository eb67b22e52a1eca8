package conditional

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rhealabs/raengine/internal/clock"
	"github.com/rhealabs/raengine/internal/pagedriver"
	"github.com/rhealabs/raengine/internal/telemetry"
	"github.com/rhealabs/raengine/internal/types"
)

func newFakeWithToken(text string, confidence float64) *pagedriver.Fake {
	drv := pagedriver.NewFake(clock.Real{})
	drv.OCR[pagedriver.MainFrame] = []pagedriver.OCRToken{
		{Text: text, Confidence: confidence, Box: pagedriver.Box{X: 10, Y: 10, Width: 20, Height: 20}},
	}
	return drv
}

func TestRunSucceedsWhenSuccessLabelObserved(t *testing.T) {
	drv := newFakeWithToken("Allow", 0.9)
	cfg := types.ConditionalConfig{
		Labels: []string{"Allow", "Deny"}, SuccessLabel: "Allow",
		TimeoutMs: 200, PollMs: 5, ConfidenceMin: 0.5,
	}
	out := Run(context.Background(), clock.Real{}, drv, nil, nil, "run-1", "step-1", pagedriver.MainFrame, cfg)
	assert.Equal(t, StateSucceeded, out.FinalState)
	assert.Equal(t, 0, out.Clicks)
}

func TestRunClicksLabelThenContinuesPolling(t *testing.T) {
	drv := newFakeWithToken("Continue", 0.9)
	cfg := types.ConditionalConfig{
		Labels: []string{"Continue"}, TimeoutMs: 60, PollMs: 5, ConfidenceMin: 0.5, MaxClicks: 2,
	}
	rec := telemetry.NewRecorder(clock.Real{}, nil, 0)
	out := Run(context.Background(), clock.Real{}, drv, nil, rec, "run-2", "step-2", pagedriver.MainFrame, cfg)

	assert.Equal(t, StateMaxClicksReached, out.FinalState)
	assert.Equal(t, 2, out.Clicks)
	assert.Len(t, drv.Clicks, 2)
}

func TestRunTimesOutWhenLabelNeverAppears(t *testing.T) {
	drv := pagedriver.NewFake(clock.Real{})
	cfg := types.ConditionalConfig{Labels: []string{"Allow"}, TimeoutMs: 20, PollMs: 5}
	out := Run(context.Background(), clock.Real{}, drv, nil, nil, "run-3", "step-3", pagedriver.MainFrame, cfg)
	assert.Equal(t, StateTimedOut, out.FinalState)
	assert.Equal(t, 0, out.Clicks)
}

func TestRunReturnsCancelledWhenContextCancelledMidPoll(t *testing.T) {
	drv := pagedriver.NewFake(clock.Real{})
	cfg := types.ConditionalConfig{Labels: []string{"Allow"}, TimeoutMs: 5000, PollMs: 10}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out := Run(ctx, clock.Real{}, drv, nil, nil, "run-4", "step-4", pagedriver.MainFrame, cfg)
	assert.Equal(t, StateCancelled, out.FinalState)
}
