// Package dispatch implements C4: translating a located node and a Step's
// ActionKind into the concrete pagedriver.Driver call, after autowait and
// context validation have both cleared. Kept deliberately thin — all the
// interesting decisions (which strategy found the node, whether it was
// safe to click) happen upstream in locator/autowait/validate.
package dispatch

import (
	"context"

	"github.com/rhealabs/raengine/internal/errs"
	"github.com/rhealabs/raengine/internal/pagedriver"
	"github.com/rhealabs/raengine/internal/types"
)

// Dispatch executes step's action against the resolved node. pt is the
// coordinate fallback used only when node is empty (the coordinates
// strategy resolved a point, not a handle).
func Dispatch(ctx context.Context, drv pagedriver.Driver, frame pagedriver.FrameHandle, node pagedriver.NodeHandle, pt *pagedriver.Point, step types.Step) error {
	switch step.Action {
	case types.ActionOpen:
		return nil
	case types.ActionClick, types.ActionConditionalClick:
		if err := drv.Click(ctx, frame, node, pt); err != nil {
			return errs.New(errs.DispatchFailed, err.Error())
		}
		return nil
	case types.ActionInput:
		if err := drv.Type(ctx, frame, node, step.Value); err != nil {
			return errs.New(errs.DispatchFailed, err.Error())
		}
		return nil
	case types.ActionEnter:
		if err := drv.PressEnter(ctx, frame, node); err != nil {
			return errs.New(errs.DispatchFailed, err.Error())
		}
		return nil
	case types.ActionSelect:
		if err := drv.Select(ctx, frame, node, step.Value); err != nil {
			return errs.New(errs.DispatchFailed, err.Error())
		}
		return nil
	default:
		return errs.New(errs.DispatchFailed, "unknown action kind: "+string(step.Action))
	}
}
