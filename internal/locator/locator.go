// Package locator implements C1, the seven-strategy element location chain
// (spec §4.1-4.2). BuildChain turns a Step's Bundle into a ranked
// FallbackChain; Resolve walks that chain in descending-confidence order,
// running each candidate strategy under its own timeout, until one
// produces exactly one match. Grounded on the teacher's
// executeClickWithHealing fallback order
// (internal/recording/playback_engine.go) generalized from a fixed
// 4-strategy ladder to the spec's fixed 7-strategy table with explicit
// confidence/priority ranking instead of first-match-wins.
package locator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rhealabs/raengine/internal/errs"
	"github.com/rhealabs/raengine/internal/pagedriver"
	"github.com/rhealabs/raengine/internal/types"
)

// DefaultAttemptTimeout bounds a single strategy's attempt (spec §4.2).
const DefaultAttemptTimeout = 2 * time.Second

// BuildChain derives a fresh FallbackChain from a Step's Bundle, including
// only strategies the Bundle carries enough data for. Entries are appended
// in a fixed assembly order and are not ranked here; FallbackChain.Sorted
// (which Resolve calls) orders them by confidence.
func BuildChain(b types.Bundle) types.FallbackChain {
	var entries []types.ChainEntry
	add := func(kind types.StrategyKind, args types.LocatorArgs) {
		entries = append(entries, types.ChainEntry{
			Kind:               kind,
			Args:               args,
			ExpectedConfidence: types.ExpectedConfidence[kind],
			TimeoutMs:          int(DefaultAttemptTimeout / time.Millisecond),
		})
	}

	if b.ID != "" {
		add(types.StrategyDOMAttr, types.LocatorArgs{Attr: "id", Value: b.ID})
	} else if b.Name != "" {
		add(types.StrategyDOMAttr, types.LocatorArgs{Attr: "name", Value: b.Name})
	} else if testid, ok := b.Dataset["testid"]; ok && testid != "" {
		add(types.StrategyDOMAttr, types.LocatorArgs{Attr: "testid", Value: testid})
	}

	if b.AriaLabel != "" {
		add(types.StrategySemantic, types.LocatorArgs{Text: b.AriaLabel, Exact: true})
	}

	if b.VisibleText != "" {
		add(types.StrategyText, types.LocatorArgs{Text: b.VisibleText, Exact: false})
	} else if b.Placeholder != "" {
		add(types.StrategyText, types.LocatorArgs{Text: b.Placeholder, Exact: false})
	}

	if b.CSSSelector != "" {
		add(types.StrategyCSS, types.LocatorArgs{Selector: b.CSSSelector})
	}

	if b.XPath != "" {
		add(types.StrategyXPath, types.LocatorArgs{Selector: b.XPath})
	}

	// Vision is always a candidate when visible text exists to search an
	// OCR layer for; it is the only strategy allowed to miss the Bundle
	// entirely since it operates on pixels, not the DOM.
	if b.VisibleText != "" {
		add(types.StrategyVision, types.LocatorArgs{Text: b.VisibleText})
	}

	if b.BoundingBox.Width > 0 && b.BoundingBox.Height > 0 {
		add(types.StrategyCoordinates, types.LocatorArgs{})
	}

	return types.FallbackChain{Entries: entries}
}

// Attempt is one strategy's outcome, recorded for telemetry regardless of
// whether it matched.
type Attempt struct {
	Kind       types.StrategyKind
	Matched    bool
	Count      int
	Confidence float64
	Err        error
	Duration   time.Duration
}

// Result is the outcome of resolving a Step's location.
type Result struct {
	Node       pagedriver.NodeHandle
	Frame      pagedriver.FrameHandle
	Kind       types.StrategyKind
	Confidence float64
	Attempts   []Attempt
}

// Resolve walks chain.Sorted() in order, returning the first strategy that
// resolves to exactly one node. A strategy resolving to zero nodes is
// NotFound (try next); more than one is Ambiguous unless disambiguation
// narrows it (narrowing is out of scope here — spec leaves Ambiguous as a
// terminal per-strategy outcome, the chain simply moves on). If every
// strategy is exhausted, Resolve returns the last error observed.
func Resolve(ctx context.Context, drv pagedriver.Driver, frame pagedriver.FrameHandle, chain types.FallbackChain) (Result, error) {
	entries := chain.Sorted()
	res := Result{Frame: frame}
	var lastErr error = errs.New(errs.NotFound, "empty fallback chain")

	for _, entry := range entries {
		attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(entry.TimeoutMs)*time.Millisecond)
		start := time.Now()
		handles, err := runStrategy(attemptCtx, drv, frame, entry)
		cancel()
		dur := time.Since(start)

		att := Attempt{Kind: entry.Kind, Duration: dur}
		switch {
		case err != nil:
			att.Err = err
			lastErr = err
		case len(handles) == 0:
			att.Err = errs.New(errs.NotFound, fmt.Sprintf("%s: no match", entry.Kind))
			lastErr = att.Err
		case len(handles) > 1:
			att.Matched = true
			att.Count = len(handles)
			att.Err = errs.New(errs.Ambiguous, fmt.Sprintf("%s: %d matches", entry.Kind, len(handles))).WithDetail(map[string]any{"count": len(handles)})
			lastErr = att.Err
		default:
			att.Matched = true
			att.Count = 1
			att.Confidence = entry.ExpectedConfidence
			res.Attempts = append(res.Attempts, att)
			res.Node = handles[0]
			res.Kind = entry.Kind
			res.Confidence = entry.ExpectedConfidence
			return res, nil
		}
		res.Attempts = append(res.Attempts, att)
	}

	return res, lastErr
}

func runStrategy(ctx context.Context, drv pagedriver.Driver, frame pagedriver.FrameHandle, entry types.ChainEntry) ([]pagedriver.NodeHandle, error) {
	switch entry.Kind {
	case types.StrategyDOMAttr:
		return drv.QueryAttribute(ctx, frame, entry.Args.Attr, entry.Args.Value)
	case types.StrategyCSS:
		return drv.QuerySelector(ctx, frame, entry.Args.Selector)
	case types.StrategyXPath:
		return drv.QueryXPath(ctx, frame, entry.Args.Selector)
	case types.StrategySemantic:
		return resolveSemantic(ctx, drv, frame, entry.Args.Text, entry.Args.Exact)
	case types.StrategyText:
		return drv.QueryText(ctx, frame, entry.Args.Text, entry.Args.Exact)
	case types.StrategyCached:
		// Cached args carry a concrete selector/attr pair promoted from the
		// healing cache; re-dispatch through the matching concrete strategy.
		if entry.Args.Selector != "" {
			return drv.QuerySelector(ctx, frame, entry.Args.Selector)
		}
		return drv.QueryAttribute(ctx, frame, entry.Args.Attr, entry.Args.Value)
	default:
		return nil, errs.New(errs.NotFound, fmt.Sprintf("strategy %s resolved outside locator.Resolve", entry.Kind))
	}
}

// resolveSemantic walks the accessibility tree for nodes whose Name
// matches: case-insensitive substring by default, full equality when
// exact is set (spec §4.1's "name case-insensitive substring unless
// exact" rule).
func resolveSemantic(ctx context.Context, drv pagedriver.Driver, frame pagedriver.FrameHandle, name string, exact bool) ([]pagedriver.NodeHandle, error) {
	tree, err := drv.AccessibilityTree(ctx, frame)
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(strings.TrimSpace(name))
	var out []pagedriver.NodeHandle
	var walk func(n pagedriver.AXNode)
	walk = func(n pagedriver.AXNode) {
		got := strings.ToLower(strings.TrimSpace(n.Name))
		matched := (exact && n.Name == name) || (!exact && got != "" && strings.Contains(got, want))
		if matched && n.Handle != "" {
			out = append(out, n.Handle)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(tree)
	return out, nil
}
