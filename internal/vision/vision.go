// Package vision implements C3, the OCR-backed visual fallback strategy.
// No OCR library appears anywhere in the retrieved corpus (see DESIGN.md),
// so this package defines OCRProvider as a pluggable interface and ships
// one concrete implementation, StructuralOCR, that reads the token layer
// pagedriver.Driver.Screenshot already returns alongside the PNG bytes —
// honest about there being no bundled recognition backend rather than
// fabricating a dependency on one.
package vision

import (
	"context"
	"strings"

	"github.com/rhealabs/raengine/internal/errs"
	"github.com/rhealabs/raengine/internal/pagedriver"
)

// maxScrollAttempts bounds the scroll-and-reOCR loop Locate runs when its
// best match's bounding box falls outside the current viewport (spec
// §4.3: "otherwise the engine requests a scroll, up to 3 attempts, OCR
// after each").
const maxScrollAttempts = 3

// fuzzyDiceMin is the bigram Dice-coefficient floor for the third
// matching tier, below exact and case-insensitive-contains (spec §4.3).
const fuzzyDiceMin = 0.7

// Match is one OCR hit against a search term.
type Match struct {
	Box        pagedriver.Box
	Confidence float64
	Text       string
}

// OCRProvider recognizes text regions in a screenshot. Implementations may
// wrap a real recognition backend; StructuralOCR assumes the driver's
// screenshot call already returns recognized tokens.
type OCRProvider interface {
	Recognize(ctx context.Context, png []byte, tokens []pagedriver.OCRToken) ([]pagedriver.OCRToken, error)
}

// StructuralOCR passes the driver-supplied token layer through unchanged.
// It exists so the rest of the engine depends on OCRProvider rather than
// reaching into pagedriver directly, keeping a real recognition backend a
// drop-in replacement later.
type StructuralOCR struct{}

func (StructuralOCR) Recognize(ctx context.Context, png []byte, tokens []pagedriver.OCRToken) ([]pagedriver.OCRToken, error) {
	return tokens, nil
}

// minConfidence is the absolute floor below which an OCR token is not
// considered a candidate match at all, independent of the caller's own
// confidence_min (spec §4.1's 0.40-0.90 vision range; tokens under 0.40
// are noise). confidenceMin passed into Locate can only raise this floor,
// never lower it.
const minConfidence = 0.40

// Locate searches the frame's screenshot for text, returning matches
// ordered by descending confidence. Matching runs three tiers in order —
// exact, case-insensitive contains, then fuzzy bigram-Dice ≥ fuzzyDiceMin
// — and a token must also clear confidenceMin (spec §4.3/§6's
// OCR_CONFIDENCE_MIN, default 0.60; callers pass 0 to use only the
// absolute floor). When the best match's bounding box falls outside the
// frame's current viewport, Locate asks the driver to scroll and re-runs
// OCR, up to maxScrollAttempts times, before giving up and returning
// whatever it last found (spec §4.3). An empty result is not an error —
// callers treat it as NotFound and continue down the chain.
func Locate(ctx context.Context, drv pagedriver.Driver, provider OCRProvider, frame pagedriver.FrameHandle, text string, confidenceMin float64) ([]Match, error) {
	if provider == nil {
		provider = StructuralOCR{}
	}
	if confidenceMin < minConfidence {
		confidenceMin = minConfidence
	}

	var matches []Match
	for attempt := 0; ; attempt++ {
		recognized, err := screenshotTokens(ctx, drv, provider, frame)
		if err != nil {
			return nil, err
		}
		matches = matchAll(recognized, text, confidenceMin)
		sortByConfidenceDesc(matches)
		if len(matches) == 0 {
			return matches, nil
		}

		vp, verr := drv.Viewport(ctx, frame)
		if verr != nil {
			return matches, nil
		}
		if withinViewport(matches[0].Box, vp) || attempt >= maxScrollAttempts {
			return matches, nil
		}
		if serr := drv.Scroll(ctx, frame, 0, scrollDelta(matches[0].Box, vp)); serr != nil {
			return matches, nil
		}
	}
}

func screenshotTokens(ctx context.Context, drv pagedriver.Driver, provider OCRProvider, frame pagedriver.FrameHandle) ([]pagedriver.OCRToken, error) {
	png, tokens, err := drv.Screenshot(ctx, frame, "")
	if err != nil {
		return nil, errs.New(errs.OCRFailed, err.Error())
	}
	recognized, err := provider.Recognize(ctx, png, tokens)
	if err != nil {
		return nil, errs.New(errs.OCRFailed, err.Error())
	}
	return recognized, nil
}

// matchAll runs the three matching tiers (exact, contains, fuzzy Dice)
// against every token clearing confidenceMin. A fuzzy-tier match's
// reported confidence is scaled by its Dice score, since a loose textual
// match is a weaker signal than the OCR engine's own confidence implies.
func matchAll(tokens []pagedriver.OCRToken, text string, confidenceMin float64) []Match {
	want := strings.ToLower(strings.TrimSpace(text))
	var matches []Match
	for _, tok := range tokens {
		if tok.Confidence < confidenceMin {
			continue
		}
		got := strings.ToLower(strings.TrimSpace(tok.Text))
		switch {
		case got == want:
			matches = append(matches, Match{Box: tok.Box, Confidence: tok.Confidence, Text: tok.Text})
		case strings.Contains(got, want):
			matches = append(matches, Match{Box: tok.Box, Confidence: tok.Confidence, Text: tok.Text})
		default:
			if dice := diceCoefficient(got, want); dice >= fuzzyDiceMin {
				matches = append(matches, Match{Box: tok.Box, Confidence: tok.Confidence * dice, Text: tok.Text})
			}
		}
	}
	return matches
}

// withinViewport reports whether box lies entirely inside vp, the check
// spec §4.3 requires before a match becomes a ClickTarget.
func withinViewport(box pagedriver.Box, vp pagedriver.Viewport) bool {
	return box.X >= 0 && box.Y >= 0 &&
		box.X+box.Width <= vp.Width && box.Y+box.Height <= vp.Height
}

// scrollDelta returns the vertical scroll (positive = down) that would
// bring box back inside vp.
func scrollDelta(box pagedriver.Box, vp pagedriver.Viewport) float64 {
	if box.Y < 0 {
		return box.Y
	}
	if bottom := box.Y + box.Height; bottom > vp.Height {
		return bottom - vp.Height
	}
	return 0
}

func sortByConfidenceDesc(m []Match) {
	for i := 1; i < len(m); i++ {
		for j := i; j > 0 && m[j-1].Confidence < m[j].Confidence; j-- {
			m[j-1], m[j] = m[j], m[j-1]
		}
	}
}

// diceCoefficient returns the bigram Sørensen-Dice coefficient of a and
// b, in [0,1]. Used for the fuzzy third matching tier (spec §4.3).
func diceCoefficient(a, b string) float64 {
	if a == b {
		return 1
	}
	ab, bb := bigramCounts(a), bigramCounts(b)
	if len(ab) == 0 || len(bb) == 0 {
		return 0
	}
	var shared, total int
	for bg, ca := range ab {
		if cb, ok := bb[bg]; ok {
			if ca < cb {
				shared += ca
			} else {
				shared += cb
			}
		}
		total += ca
	}
	for _, cb := range bb {
		total += cb
	}
	return 2 * float64(shared) / float64(total)
}

func bigramCounts(s string) map[string]int {
	runes := []rune(s)
	counts := map[string]int{}
	if len(runes) < 2 {
		return counts
	}
	for i := 0; i < len(runes)-1; i++ {
		counts[string(runes[i:i+2])]++
	}
	return counts
}

// Center returns the pixel center of a match's bounding box, the point a
// coordinate click should target.
func Center(b pagedriver.Box) pagedriver.Point {
	return pagedriver.Point{
		X: int(b.X + b.Width/2),
		Y: int(b.Y + b.Height/2),
	}
}
