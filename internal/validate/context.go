// Package validate implements C9: context disambiguation. After a node is
// located, it is classified into a context class (terminal, copilot-prompt,
// input-field) from its observable attributes; if the Step's expected
// class irreconcilably mismatches the observed class above a confidence
// threshold, dispatch is vetoed with ContextMismatch rather than clicking
// the wrong surface. Grounded on the teacher's PluginReadiness branching
// (cmd/dev-console/pilot.go checkPilotReady), generalized from a binary
// ready/not-ready check into a three-way classification.
package validate

import (
	"regexp"
	"strings"

	"github.com/rhealabs/raengine/internal/errs"
	"github.com/rhealabs/raengine/internal/pagedriver"
)

// ContextClass is the observed surface kind a located node belongs to.
type ContextClass string

const (
	ContextTerminal      ContextClass = "terminal"
	ContextCopilotPrompt ContextClass = "copilot-prompt"
	ContextInputField    ContextClass = "input-field"
	ContextUnknown       ContextClass = "unknown"
)

// MismatchConfidenceThreshold is the minimum classification confidence
// required before a mismatch vetoes dispatch (spec §4.8). Below this, the
// classification is too uncertain to act on and the step proceeds.
const MismatchConfidenceThreshold = 0.8

// Classification is the result of classifying a node.
type Classification struct {
	Class      ContextClass
	Confidence float64
}

// shellPromptPrefixes are the shell-prompt lead-ins spec §4.8 names
// (`$ `, `> `, `# `, `C:\>`); VisibleText matching one of these, alongside
// a monospace/dark-background rendering, is terminal's strongest signal.
var shellPromptPrefixes = []string{"$ ", "> ", "# ", `C:\>`}

// copilotPattern matches spec §4.8's `/copilot/i`, `/suggestion/i` class
// and aria-label signal for the copilot-prompt surface.
var copilotPattern = regexp.MustCompile(`(?i)copilot|suggestion`)

func looksLikeShellPrompt(text string) bool {
	trimmed := strings.TrimLeft(text, " \t")
	for _, prefix := range shellPromptPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// Classify inspects a node's rendered style and text for spec §4.8's
// terminal and copilot-prompt signals; anything that looks like a
// standard form control defaults to input-field.
func Classify(info pagedriver.NodeInfo) Classification {
	tag := strings.ToLower(info.Tag)
	role := strings.ToLower(info.Role)
	prompt := looksLikeShellPrompt(info.VisibleText)

	switch {
	case info.Monospace && info.DarkBackground && prompt:
		// Full signal: font, background, and prompt text all agree.
		return Classification{Class: ContextTerminal, Confidence: 0.95}
	case (info.Monospace && info.DarkBackground) || (prompt && (info.Monospace || info.DarkBackground)):
		// Two of the three signals agree — still comfortably above the
		// mismatch-veto threshold but short of a full match.
		return Classification{Class: ContextTerminal, Confidence: 0.85}
	case prompt:
		// Prompt text alone, no rendering info available (e.g. the
		// driver doesn't expose computed style) — enough to classify,
		// not enough to veto on by itself.
		return Classification{Class: ContextTerminal, Confidence: 0.65}
	}

	if copilotPattern.MatchString(info.AriaLabel) || anyMatches(copilotPattern, info.ClassList) {
		return Classification{Class: ContextCopilotPrompt, Confidence: 0.85}
	}

	switch tag {
	case "input", "textarea", "select", "button":
		return Classification{Class: ContextInputField, Confidence: 0.9}
	}
	if role == "textbox" || role == "button" || role == "combobox" {
		return Classification{Class: ContextInputField, Confidence: 0.8}
	}
	return Classification{Class: ContextUnknown, Confidence: 0}
}

func anyMatches(re *regexp.Regexp, vals []string) bool {
	for _, v := range vals {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}

// Check vetoes dispatch when expected is non-empty, the observed
// classification differs, and the classification confidence clears
// MismatchConfidenceThreshold. An empty expected class always passes
// (the step opted out of the check).
func Check(expected ContextClass, observed Classification) error {
	if expected == "" {
		return nil
	}
	if observed.Class == expected || observed.Class == ContextUnknown {
		return nil
	}
	if observed.Confidence < MismatchConfidenceThreshold {
		return nil
	}
	return errs.New(errs.ContextMismatch, "located node belongs to an unexpected surface").WithDetail(map[string]any{
		"expected": string(expected),
		"observed": string(observed.Class),
		"confidence": observed.Confidence,
	})
}
