package recording

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhealabs/raengine/internal/clock"
	"github.com/rhealabs/raengine/internal/engine"
	"github.com/rhealabs/raengine/internal/pagedriver"
	"github.com/rhealabs/raengine/internal/types"
)

func newTestRunner(drv pagedriver.Driver) *Runner {
	return &Runner{Engine: &engine.Engine{Driver: drv, Clock: clock.Real{}}, Clock: clock.Real{}}
}

func TestPlayRunsEveryStepAndTallysOutcomes(t *testing.T) {
	drv := pagedriver.NewFake(clock.Real{})
	drv.Nodes = []pagedriver.FakeNode{
		{Handle: "n1", Frame: pagedriver.MainFrame, ID: "a", Visible: true, Enabled: true, InViewport: true},
		{Handle: "n2", Frame: pagedriver.MainFrame, ID: "b", Visible: true, Enabled: true, InViewport: true},
	}
	rec := types.NewRecording("rec-1", "two clicks")
	rec.Steps = []types.Step{
		{ID: "s1", Action: types.ActionClick, Bundle: types.Bundle{ID: "a"}},
		{ID: "s2", Action: types.ActionClick, Bundle: types.Bundle{ID: "b"}},
	}

	sum := newTestRunner(drv).Play(context.Background(), "https://example.com", rec)
	assert.Equal(t, 2, sum.StepsTotal)
	assert.Equal(t, 2, sum.StepsSucceeded)
	assert.Equal(t, 0, sum.StepsFailed)
	assert.Len(t, drv.Clicks, 2)
}

func TestPlayContinuesPastAFailedStep(t *testing.T) {
	drv := pagedriver.NewFake(clock.Real{})
	drv.Nodes = []pagedriver.FakeNode{
		{Handle: "n2", Frame: pagedriver.MainFrame, ID: "b", Visible: true, Enabled: true, InViewport: true},
	}
	rec := types.NewRecording("rec-1", "one broken step")
	rec.Steps = []types.Step{
		{ID: "s1", Action: types.ActionClick, Bundle: types.Bundle{ID: "ghost"}},
		{ID: "s2", Action: types.ActionClick, Bundle: types.Bundle{ID: "b"}},
	}

	sum := newTestRunner(drv).Play(context.Background(), "https://example.com", rec)
	require.Len(t, sum.Outcomes, 2)
	assert.Error(t, sum.Outcomes[0].Err)
	assert.NoError(t, sum.Outcomes[1].Err)
	assert.Equal(t, 1, sum.StepsFailed)
	assert.Equal(t, 1, sum.StepsSucceeded)
	assert.Len(t, drv.Clicks, 1, "the step after the failure must still run")
}

func TestPlayStopsImmediatelyWhenContextAlreadyCancelled(t *testing.T) {
	drv := pagedriver.NewFake(clock.Real{})
	rec := types.NewRecording("rec-1", "never runs")
	rec.Steps = []types.Step{{ID: "s1", Action: types.ActionClick, Bundle: types.Bundle{ID: "a"}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum := newTestRunner(drv).Play(ctx, "https://example.com", rec)
	assert.Equal(t, 0, sum.StepsTotal)
}

func TestPlayLoopsBackToLoopStartIndexUntilCancelled(t *testing.T) {
	drv := pagedriver.NewFake(clock.Real{})
	drv.Nodes = []pagedriver.FakeNode{
		{Handle: "n1", Frame: pagedriver.MainFrame, ID: "a", Visible: true, Enabled: true, InViewport: true},
	}
	rec := types.NewRecording("rec-1", "loops once")
	rec.Steps = []types.Step{{ID: "s1", Action: types.ActionClick, Bundle: types.Bundle{ID: "a"}}}
	rec.LoopStartIndex = 0

	ctx, cancel := context.WithCancel(context.Background())
	count := 0
	drvWithCancel := &cancelingFake{Fake: drv, onClick: func() {
		count++
		if count >= 3 {
			cancel()
		}
	}}

	newTestRunner(drvWithCancel).Play(ctx, "https://example.com", rec)
	assert.GreaterOrEqual(t, count, 3, "looping should replay the single step multiple times before cancellation")
}

type cancelingFake struct {
	*pagedriver.Fake
	onClick func()
}

func (f *cancelingFake) Click(ctx context.Context, frame pagedriver.FrameHandle, node pagedriver.NodeHandle, pt *pagedriver.Point) error {
	err := f.Fake.Click(ctx, frame, node, pt)
	f.onClick()
	return err
}
