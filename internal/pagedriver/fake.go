package pagedriver

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rhealabs/raengine/internal/clock"
	"github.com/rhealabs/raengine/internal/errs"
	"github.com/rhealabs/raengine/internal/types"
)

// FakeNode is one node a Fake driver can resolve. Tests build a tree of
// these to model DOM drift scenarios (moved id, renamed class, relabeled
// aria-label) deterministically.
type FakeNode struct {
	Handle         NodeHandle
	Frame          FrameHandle
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
	Monospace      bool
	DarkBackground bool
}

// Fake is an in-memory Driver for deterministic tests (spec §8 scenarios).
// It never touches a real browser; every query is a linear scan over Nodes.
type Fake struct {
	mu     sync.Mutex
	Clock  clock.Clock
	Nodes  []FakeNode
	Frames map[string]FrameHandle // id/name -> handle, for ResolveFrame
	Clicks []ClickRecord
	OCR    map[FrameHandle][]OCRToken

	// ViewportW/ViewportH describe the visible scroll window; zero
	// values fall back to defaultViewportW/defaultViewportH. OCR token
	// boxes stored in OCR are in page coordinates; Screenshot subtracts
	// ScrollY[frame] to report them viewport-relative, and Scroll
	// mutates ScrollY.
	ViewportW, ViewportH float64
	ScrollY              map[FrameHandle]float64
}

const (
	defaultViewportW = 1280.0
	defaultViewportH = 720.0
)

// ClickRecord captures one Click call for test assertions.
type ClickRecord struct {
	Frame FrameHandle
	Node  NodeHandle
	Pt    *Point
	At    time.Time
}

// NewFake returns an empty Fake driver backed by the given clock.
func NewFake(c clock.Clock) *Fake {
	if c == nil {
		c = clock.Real{}
	}
	return &Fake{Clock: c, Frames: map[string]FrameHandle{}, OCR: map[FrameHandle][]OCRToken{}, ScrollY: map[FrameHandle]float64{}}
}

func (f *Fake) Now() time.Time { return f.Clock.Now() }

func (f *Fake) ResolveFrame(ctx context.Context, chain []types.FrameLocator) (FrameHandle, error) {
	if len(chain) == 0 {
		return MainFrame, nil
	}
	cur := MainFrame
	for depth, hop := range chain {
		key := hop.ID
		if key == "" {
			key = hop.Name
		}
		h, ok := f.Frames[key]
		if !ok {
			return "", errs.New(errs.FrameResolutionFailed, "frame not found").WithDetail(map[string]any{"depth": depth})
		}
		cur = h
	}
	return cur, nil
}

func (f *Fake) nodesIn(frame FrameHandle) []FakeNode {
	var out []FakeNode
	for _, n := range f.Nodes {
		if n.Frame == frame {
			out = append(out, n)
		}
	}
	return out
}

func (f *Fake) QuerySelector(ctx context.Context, frame FrameHandle, css string) ([]NodeHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []NodeHandle
	switch {
	case strings.HasPrefix(css, "#"):
		id := css[1:]
		for _, n := range f.nodesIn(frame) {
			if n.ID == id {
				out = append(out, n.Handle)
			}
		}
	case strings.HasPrefix(css, "."):
		cls := css[1:]
		for _, n := range f.nodesIn(frame) {
			for _, c := range n.ClassList {
				if c == cls {
					out = append(out, n.Handle)
					break
				}
			}
		}
	case strings.HasPrefix(css, "[data-testid="):
		val := strings.TrimSuffix(strings.TrimPrefix(css, "[data-testid="), "]")
		val = strings.Trim(val, `"'`)
		for _, n := range f.nodesIn(frame) {
			if n.Dataset["testid"] == val {
				out = append(out, n.Handle)
			}
		}
	}
	return out, nil
}

func (f *Fake) QueryXPath(ctx context.Context, frame FrameHandle, xpath string) ([]NodeHandle, error) {
	// Fake supports only the common //tag[@attr='value'] shape used in tests.
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []NodeHandle
	for _, n := range f.nodesIn(frame) {
		if strings.Contains(xpath, n.Tag) && n.ID != "" && strings.Contains(xpath, n.ID) {
			out = append(out, n.Handle)
		}
	}
	return out, nil
}

func (f *Fake) QueryAttribute(ctx context.Context, frame FrameHandle, attr, value string) ([]NodeHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []NodeHandle
	for _, n := range f.nodesIn(frame) {
		switch attr {
		case "id":
			if n.ID == value {
				out = append(out, n.Handle)
			}
		case "name":
			if n.Name == value {
				out = append(out, n.Handle)
			}
		default:
			if n.Dataset[attr] == value {
				out = append(out, n.Handle)
			}
		}
	}
	return out, nil
}

func (f *Fake) QueryText(ctx context.Context, frame FrameHandle, text string, exact bool) ([]NodeHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []NodeHandle
	for _, n := range f.nodesIn(frame) {
		candidates := []string{n.VisibleText, n.AriaLabel, n.Placeholder}
		for _, c := range candidates {
			if c == "" {
				continue
			}
			if (exact && c == text) || (!exact && strings.Contains(strings.ToLower(c), strings.ToLower(text))) {
				out = append(out, n.Handle)
				break
			}
		}
	}
	return out, nil
}

func (f *Fake) AccessibilityTree(ctx context.Context, frame FrameHandle) (AXNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	root := AXNode{Role: "root"}
	for _, n := range f.nodesIn(frame) {
		root.Children = append(root.Children, AXNode{
			Handle: n.Handle,
			Role:   n.Role,
			Name:   firstNonEmpty(n.AriaLabel, n.VisibleText, n.Placeholder),
			Value:  n.VisibleText,
		})
	}
	return root, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (f *Fake) find(node NodeHandle) (FakeNode, bool) {
	for _, n := range f.Nodes {
		if n.Handle == node {
			return n, true
		}
	}
	return FakeNode{}, false
}

func (f *Fake) Describe(ctx context.Context, frame FrameHandle, node NodeHandle) (NodeInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.find(node)
	if !ok {
		return NodeInfo{}, errs.New(errs.NotFound, "node handle stale")
	}
	return NodeInfo{
		Tag: n.Tag, ID: n.ID, Name: n.Name, Placeholder: n.Placeholder,
		AriaLabel: n.AriaLabel, Role: n.Role, Dataset: n.Dataset, ClassList: n.ClassList,
		VisibleText: n.VisibleText, BoundingBox: n.BoundingBox,
		Visible: n.Visible, Enabled: n.Enabled, InViewport: n.InViewport,
		Monospace: n.Monospace, DarkBackground: n.DarkBackground,
	}, nil
}

func (f *Fake) Screenshot(ctx context.Context, frame FrameHandle, node NodeHandle) ([]byte, []OCRToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	scrollY := f.ScrollY[frame]
	tokens := make([]OCRToken, len(f.OCR[frame]))
	for i, t := range f.OCR[frame] {
		tokens[i] = t
		tokens[i].Box.Y -= scrollY
	}
	return []byte("fake-png"), tokens, nil
}

// Viewport returns the Fake's configured viewport size, defaulting to
// 1280x720 when unset.
func (f *Fake) Viewport(ctx context.Context, frame FrameHandle) (Viewport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, h := f.ViewportW, f.ViewportH
	if w <= 0 {
		w = defaultViewportW
	}
	if h <= 0 {
		h = defaultViewportH
	}
	return Viewport{Width: w, Height: h}, nil
}

// Scroll shifts frame's scroll offset, clamped to never go negative.
func (f *Fake) Scroll(ctx context.Context, frame FrameHandle, dx, dy float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ScrollY == nil {
		f.ScrollY = map[FrameHandle]float64{}
	}
	next := f.ScrollY[frame] + dy
	if next < 0 {
		next = 0
	}
	f.ScrollY[frame] = next
	return nil
}

func (f *Fake) Click(ctx context.Context, frame FrameHandle, node NodeHandle, pt *Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if node != "" {
		if _, ok := f.find(node); !ok {
			return errs.New(errs.NotFound, "node handle stale")
		}
	}
	f.Clicks = append(f.Clicks, ClickRecord{Frame: frame, Node: node, Pt: pt, At: f.Clock.Now()})
	return nil
}

func (f *Fake) Type(ctx context.Context, frame FrameHandle, node NodeHandle, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.Nodes {
		if n.Handle == node {
			f.Nodes[i].VisibleText = text
			return nil
		}
	}
	return errs.New(errs.NotFound, "node handle stale")
}

func (f *Fake) PressEnter(ctx context.Context, frame FrameHandle, node NodeHandle) error {
	if _, ok := f.find(node); !ok {
		return errs.New(errs.NotFound, "node handle stale")
	}
	return nil
}

func (f *Fake) Select(ctx context.Context, frame FrameHandle, node NodeHandle, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.Nodes {
		if n.Handle == node {
			f.Nodes[i].VisibleText = value
			return nil
		}
	}
	return errs.New(errs.NotFound, "node handle stale")
}
