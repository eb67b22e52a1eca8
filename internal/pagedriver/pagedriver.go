// Package pagedriver defines the opaque-handle abstraction every locator,
// dispatch, and vision component talks to instead of holding raw DOM/CDP
// references across suspension points (spec §9 design guidance). Handles
// are resolved on demand; nothing here assumes a particular browser
// transport, mirroring how the teacher's playback engine
// (internal/recording/playback_engine.go) keeps action execution behind a
// RecordingManager method set rather than a concrete CDP client.
package pagedriver

import (
	"context"
	"time"

	"github.com/rhealabs/raengine/internal/types"
)

// FrameHandle opaquely identifies one frame (main or iframe) within a page.
// It is only ever compared for equality or passed back into Driver calls —
// never dereferenced by callers.
type FrameHandle string

// NodeHandle opaquely identifies one DOM node within a frame. Like
// FrameHandle, it has no meaning outside the Driver that issued it and may
// become stale (the node may detach) between resolution and use; callers
// must treat a stale handle as NotFound, not a panic.
type NodeHandle string

// MainFrame is the handle passed to Driver calls that should operate on the
// page's top-level document before any frame resolution occurs.
const MainFrame FrameHandle = ""

// AXNode is one entry of an accessibility-tree snapshot (C1's semantic
// strategy consumes these).
type AXNode struct {
	Handle   NodeHandle
	Role     string
	Name     string
	Value    string
	Disabled bool
	Children []AXNode
}

// OCRToken is one recognized text region from a screenshot (C3's vision
// strategy and the conditional-click poller both consume these).
type OCRToken struct {
	Text       string
	Confidence float64
	Box        Box
}

// Box is a pixel-space bounding box, origin top-left.
type Box struct {
	X, Y, Width, Height float64
}

// Point is an absolute viewport pixel coordinate.
type Point struct{ X, Y int }

// Viewport is the page's current visible scroll window, in pixels. C3's
// vision fallback checks a matched text region's bounding box against
// this before clicking it — a region below or above the fold needs a
// scroll first.
type Viewport struct{ Width, Height float64 }

// NodeInfo is the queryable state of a resolved node (C5 actionability
// checks and C9 context classification read this).
type NodeInfo struct {
	Tag            string
	ID             string
	Name           string
	Placeholder    string
	AriaLabel      string
	Role           string
	Dataset        map[string]string
	ClassList      []string
	VisibleText    string
	BoundingBox    Box
	Visible        bool
	Enabled        bool
	InViewport     bool
	Monospace      bool // computed font-family is a monospace stack
	DarkBackground bool // computed background luminance is below the dark threshold
}

// Driver is the full set of page operations the engine requires. A real
// implementation wraps a CDP/browser-extension transport; Fake (in this
// package's test helper) is an in-memory implementation for deterministic
// tests.
type Driver interface {
	// ResolveFrame walks an iframe chain outer-to-inner and returns a
	// handle to the innermost frame, or a FrameResolutionFailed error.
	ResolveFrame(ctx context.Context, chain []types.FrameLocator) (FrameHandle, error)

	// QuerySelector returns all nodes in frame matching a CSS selector.
	QuerySelector(ctx context.Context, frame FrameHandle, css string) ([]NodeHandle, error)

	// QueryXPath returns all nodes in frame matching an XPath expression.
	QueryXPath(ctx context.Context, frame FrameHandle, xpath string) ([]NodeHandle, error)

	// QueryAttribute returns all nodes in frame whose attr equals value.
	QueryAttribute(ctx context.Context, frame FrameHandle, attr, value string) ([]NodeHandle, error)

	// QueryText returns nodes in frame whose visible text, label, or
	// placeholder matches text (exact or substring per exact).
	QueryText(ctx context.Context, frame FrameHandle, text string, exact bool) ([]NodeHandle, error)

	// AccessibilityTree returns the AX tree rooted at frame.
	AccessibilityTree(ctx context.Context, frame FrameHandle) (AXNode, error)

	// Describe returns the current observable state of node.
	Describe(ctx context.Context, frame FrameHandle, node NodeHandle) (NodeInfo, error)

	// Screenshot captures the current viewport (or a node's bounding box
	// when node is non-empty) as PNG bytes plus an OCR token layer. Token
	// boxes are in viewport-relative coordinates, already adjusted for
	// any scrolling applied via Scroll.
	Screenshot(ctx context.Context, frame FrameHandle, node NodeHandle) ([]byte, []OCRToken, error)

	// Viewport returns frame's current visible scroll window.
	Viewport(ctx context.Context, frame FrameHandle) (Viewport, error)

	// Scroll shifts frame's scroll position by (dx, dy) pixels. Positive
	// dy scrolls down (content moves up within the viewport).
	Scroll(ctx context.Context, frame FrameHandle, dx, dy float64) error

	// Click dispatches a real pointer click at node's center, or at pt
	// when node is empty (coordinate-only fallback).
	Click(ctx context.Context, frame FrameHandle, node NodeHandle, pt *Point) error

	// Type dispatches keystrokes into node after focusing it.
	Type(ctx context.Context, frame FrameHandle, node NodeHandle, text string) error

	// PressEnter dispatches an Enter keypress to node.
	PressEnter(ctx context.Context, frame FrameHandle, node NodeHandle) error

	// Select chooses an option by value on a <select> node.
	Select(ctx context.Context, frame FrameHandle, node NodeHandle, value string) error

	// Now returns the driver's notion of current time, for drift-sensitive
	// logging; production drivers delegate to clock.Real.
	Now() time.Time
}
