package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhealabs/raengine/internal/clock"
	"github.com/rhealabs/raengine/internal/errs"
	"github.com/rhealabs/raengine/internal/pagedriver"
	"github.com/rhealabs/raengine/internal/types"
)

func TestDispatchOpenIsANoOp(t *testing.T) {
	drv := pagedriver.NewFake(clock.Real{})
	err := Dispatch(context.Background(), drv, pagedriver.MainFrame, "", nil, types.Step{Action: types.ActionOpen})
	require.NoError(t, err)
	assert.Empty(t, drv.Clicks)
}

func TestDispatchClickCallsDriverClick(t *testing.T) {
	drv := pagedriver.NewFake(clock.Real{})
	drv.Nodes = []pagedriver.FakeNode{{Handle: "n1", Frame: pagedriver.MainFrame}}

	err := Dispatch(context.Background(), drv, pagedriver.MainFrame, "n1", nil, types.Step{Action: types.ActionClick})
	require.NoError(t, err)
	require.Len(t, drv.Clicks, 1)
	assert.Equal(t, pagedriver.NodeHandle("n1"), drv.Clicks[0].Node)
}

func TestDispatchConditionalClickAlsoCallsDriverClick(t *testing.T) {
	drv := pagedriver.NewFake(clock.Real{})
	drv.Nodes = []pagedriver.FakeNode{{Handle: "n1", Frame: pagedriver.MainFrame}}

	err := Dispatch(context.Background(), drv, pagedriver.MainFrame, "n1", nil, types.Step{Action: types.ActionConditionalClick})
	require.NoError(t, err)
	assert.Len(t, drv.Clicks, 1)
}

func TestDispatchInputTypesStepValue(t *testing.T) {
	drv := pagedriver.NewFake(clock.Real{})
	drv.Nodes = []pagedriver.FakeNode{{Handle: "n1", Frame: pagedriver.MainFrame}}

	err := Dispatch(context.Background(), drv, pagedriver.MainFrame, "n1", nil, types.Step{Action: types.ActionInput, Value: "hello"})
	require.NoError(t, err)

	info, err := drv.Describe(context.Background(), pagedriver.MainFrame, "n1")
	require.NoError(t, err)
	assert.Equal(t, "hello", info.VisibleText)
}

func TestDispatchEnterCallsDriverPressEnter(t *testing.T) {
	drv := pagedriver.NewFake(clock.Real{})
	drv.Nodes = []pagedriver.FakeNode{{Handle: "n1", Frame: pagedriver.MainFrame}}

	err := Dispatch(context.Background(), drv, pagedriver.MainFrame, "n1", nil, types.Step{Action: types.ActionEnter})
	require.NoError(t, err)
}

func TestDispatchSelectCallsDriverSelect(t *testing.T) {
	drv := pagedriver.NewFake(clock.Real{})
	drv.Nodes = []pagedriver.FakeNode{{Handle: "n1", Frame: pagedriver.MainFrame}}

	err := Dispatch(context.Background(), drv, pagedriver.MainFrame, "n1", nil, types.Step{Action: types.ActionSelect, Value: "opt-2"})
	require.NoError(t, err)

	info, err := drv.Describe(context.Background(), pagedriver.MainFrame, "n1")
	require.NoError(t, err)
	assert.Equal(t, "opt-2", info.VisibleText)
}

func TestDispatchUnknownActionReturnsDispatchFailed(t *testing.T) {
	drv := pagedriver.NewFake(clock.Real{})
	err := Dispatch(context.Background(), drv, pagedriver.MainFrame, "", nil, types.Step{Action: types.ActionKind("teleport")})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.DispatchFailed))
}

func TestDispatchFailurePropagatesDriverErrorAsDispatchFailed(t *testing.T) {
	drv := pagedriver.NewFake(clock.Real{})
	err := Dispatch(context.Background(), drv, pagedriver.MainFrame, "missing", nil, types.Step{Action: types.ActionClick})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.DispatchFailed))
}
