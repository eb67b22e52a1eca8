package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhealabs/raengine/internal/clock"
	"github.com/rhealabs/raengine/internal/errs"
	"github.com/rhealabs/raengine/internal/healing"
	"github.com/rhealabs/raengine/internal/pagedriver"
	"github.com/rhealabs/raengine/internal/telemetry"
	"github.com/rhealabs/raengine/internal/types"
)

type fakePersister struct{ entries map[healing.Key]healing.Entry }

func newFakePersister() *fakePersister { return &fakePersister{entries: map[healing.Key]healing.Entry{}} }

func (p *fakePersister) Put(ctx context.Context, e healing.Entry) error {
	p.entries[e.Key] = e
	return nil
}
func (p *fakePersister) Delete(ctx context.Context, k healing.Key) error {
	delete(p.entries, k)
	return nil
}
func (p *fakePersister) LoadAll(ctx context.Context) ([]healing.Entry, error) {
	var out []healing.Entry
	for _, e := range p.entries {
		out = append(out, e)
	}
	return out, nil
}

func newEngine(drv pagedriver.Driver, cache *healing.Cache) *Engine {
	return &Engine{Driver: drv, Cache: cache, Clock: clock.Real{}}
}

func TestExecuteStepResolvesByDOMAttrAndDispatches(t *testing.T) {
	drv := pagedriver.NewFake(clock.Real{})
	drv.Nodes = []pagedriver.FakeNode{
		{Handle: "n1", Frame: pagedriver.MainFrame, ID: "submit-btn", Visible: true, Enabled: true, InViewport: true},
	}
	e := newEngine(drv, nil)
	step := types.Step{ID: "s1", Action: types.ActionClick, Bundle: types.Bundle{ID: "submit-btn", CSSSelector: "#submit-btn"}}

	res := e.ExecuteStep(context.Background(), "run-1", "https://example.com/checkout", step)
	require.NoError(t, res.Err)
	assert.Equal(t, types.StrategyDOMAttr, res.Strategy)
	assert.False(t, res.Healed)
	require.Len(t, drv.Clicks, 1)
}

func TestExecuteStepRejectsConditionalClickSteps(t *testing.T) {
	e := newEngine(pagedriver.NewFake(clock.Real{}), nil)
	res := e.ExecuteStep(context.Background(), "run-1", "https://example.com", types.Step{ID: "s1", Action: types.ActionConditionalClick})
	require.Error(t, res.Err)
	assert.True(t, errs.Is(res.Err, errs.DispatchFailed))
}

func TestExecuteStepPromotesCacheHitToCachedStrategy(t *testing.T) {
	v := clock.NewVirtual(time.Unix(0, 0))
	persister := newFakePersister()
	cache := healing.NewCache(v, persister, 100, healing.DefaultTTL, healing.MinSuccessRate)

	drv := pagedriver.NewFake(v)
	drv.Nodes = []pagedriver.FakeNode{
		{Handle: "n1", Frame: pagedriver.MainFrame, ClassList: []string{"btn-submit"}, Visible: true, Enabled: true, InViewport: true},
	}
	step := types.Step{ID: "s1", Action: types.ActionClick, Bundle: types.Bundle{ID: "stale-id", CSSSelector: ".btn-submit"}}
	key := healing.KeyFor("https://example.com/checkout", step)
	healedArgs := types.LocatorArgs{Selector: ".btn-submit"}
	require.NoError(t, cache.RecordSuccess(context.Background(), key, types.StrategyCSS, healedArgs, 0.8))

	e := newEngine(drv, cache)
	res := e.ExecuteStep(context.Background(), "run-1", "https://example.com/checkout", step)
	require.NoError(t, res.Err)
	assert.True(t, res.Healed, "a promoted cache hit should be reported as healed")
}

func TestExecuteStepFallsBackToVisionWhenDOMStrategiesMiss(t *testing.T) {
	drv := pagedriver.NewFake(clock.Real{})
	drv.OCR[pagedriver.MainFrame] = []pagedriver.OCRToken{
		{Text: "Submit Order", Confidence: 0.8, Box: pagedriver.Box{X: 10, Y: 10, Width: 40, Height: 20}},
	}
	step := types.Step{ID: "s1", Action: types.ActionClick, Bundle: types.Bundle{ID: "ghost-id", VisibleText: "Submit Order"}}

	e := newEngine(drv, nil)
	res := e.ExecuteStep(context.Background(), "run-1", "https://example.com", step)
	require.NoError(t, res.Err)
	assert.Equal(t, types.StrategyVision, res.Strategy)
	require.Len(t, drv.Clicks, 1)
	assert.NotNil(t, drv.Clicks[0].Pt, "vision fallback resolves a pixel point, not a node handle")
}

func TestExecuteStepReturnsNotFoundWhenNoStrategyResolves(t *testing.T) {
	drv := pagedriver.NewFake(clock.Real{})
	step := types.Step{ID: "s1", Action: types.ActionClick, Bundle: types.Bundle{ID: "ghost"}}

	e := newEngine(drv, nil)
	res := e.ExecuteStep(context.Background(), "run-1", "https://example.com", step)
	require.Error(t, res.Err)
	assert.True(t, errs.Is(res.Err, errs.NotFound))
}

func TestExecuteStepVetoesContextMismatchForInputSteps(t *testing.T) {
	drv := pagedriver.NewFake(clock.Real{})
	drv.Nodes = []pagedriver.FakeNode{
		{Handle: "n1", Frame: pagedriver.MainFrame, ID: "field", Tag: "div",
			Monospace: true, DarkBackground: true, VisibleText: "$ ls -la",
			Visible: true, Enabled: true, InViewport: true},
	}
	step := types.Step{ID: "s1", Action: types.ActionInput, Value: "hello", Bundle: types.Bundle{ID: "field"}}

	e := newEngine(drv, nil)
	res := e.ExecuteStep(context.Background(), "run-1", "https://example.com", step)
	require.Error(t, res.Err)
	assert.True(t, errs.Is(res.Err, errs.ContextMismatch))
}

func TestExecuteStepEmitsTelemetryOnSuccess(t *testing.T) {
	drv := pagedriver.NewFake(clock.Real{})
	drv.Nodes = []pagedriver.FakeNode{
		{Handle: "n1", Frame: pagedriver.MainFrame, ID: "btn", Visible: true, Enabled: true, InViewport: true},
	}
	rec := telemetry.NewRecorder(clock.Real{}, nil, 10)
	e := newEngine(drv, nil)
	e.Recorder = rec

	step := types.Step{ID: "s1", Action: types.ActionClick, Bundle: types.Bundle{ID: "btn"}}
	res := e.ExecuteStep(context.Background(), "run-1", "https://example.com", step)
	require.NoError(t, res.Err)

	events := rec.Recent(10)
	var sawSucceeded bool
	for _, ev := range events {
		if ev.Kind == telemetry.EventStrategySucceeded {
			sawSucceeded = true
		}
	}
	assert.True(t, sawSucceeded)
}
