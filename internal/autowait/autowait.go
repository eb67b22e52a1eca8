// Package autowait implements C5: actionability waiting. Before any
// dispatch, the engine polls a resolved node until it is visible, enabled,
// and in-viewport, or the step's actionability timeout elapses. Grounded
// on the teacher's checkPilotReady poll-age branching
// (cmd/dev-console/pilot.go), generalized from a single readiness flag to
// the three-part actionability check spec §4.4 requires.
package autowait

import (
	"context"
	"time"

	"github.com/rhealabs/raengine/internal/clock"
	"github.com/rhealabs/raengine/internal/errs"
	"github.com/rhealabs/raengine/internal/pagedriver"
)

// DefaultTimeout bounds how long WaitActionable polls before giving up
// (spec §4.4, overridable per-Step via ActionabilityMs).
const DefaultTimeout = 120 * time.Second

// PollInterval is the cadence WaitActionable re-checks node state at.
const PollInterval = 100 * time.Millisecond

// Reason names which actionability dimension was last unmet, for
// EngineError detail on NotActionable.
type Reason string

const (
	ReasonNotVisible Reason = "not_visible"
	ReasonDisabled   Reason = "disabled"
	ReasonOffscreen  Reason = "offscreen"
)

// WaitActionable polls node until pagedriver.NodeInfo reports
// Visible && Enabled && InViewport, or ctx/timeout expires first.
func WaitActionable(ctx context.Context, c clock.Clock, drv pagedriver.Driver, frame pagedriver.FrameHandle, node pagedriver.NodeHandle, timeout time.Duration) (pagedriver.NodeInfo, error) {
	if c == nil {
		c = clock.Real{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := c.Now().Add(timeout)
	var lastReason Reason
	var lastInfo pagedriver.NodeInfo

	for {
		info, err := drv.Describe(ctx, frame, node)
		if err != nil {
			return pagedriver.NodeInfo{}, err
		}
		lastInfo = info
		switch {
		case !info.Visible:
			lastReason = ReasonNotVisible
		case !info.Enabled:
			lastReason = ReasonDisabled
		case !info.InViewport:
			lastReason = ReasonOffscreen
		default:
			return info, nil
		}

		if !c.Now().Before(deadline) {
			return lastInfo, errs.New(errs.NotActionable, string(lastReason)).WithDetail(map[string]any{"reason": string(lastReason)})
		}
		select {
		case <-ctx.Done():
			return lastInfo, errs.New(errs.Cancelled, ctx.Err().Error())
		case <-c.After(PollInterval):
		}
	}
}
