package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rhealabs/raengine/internal/errs"
	"github.com/rhealabs/raengine/internal/pagedriver"
)

func TestClassifyDetectsTerminalByMonospaceDarkBackgroundAndShellPrompt(t *testing.T) {
	c := Classify(pagedriver.NodeInfo{Monospace: true, DarkBackground: true, VisibleText: "$ ls -la"})
	assert.Equal(t, ContextTerminal, c.Class)
	assert.GreaterOrEqual(t, c.Confidence, 0.8)
}

func TestClassifyDetectsTerminalByPromptTextAloneAtLowerConfidence(t *testing.T) {
	c := Classify(pagedriver.NodeInfo{VisibleText: "> run tests"})
	assert.Equal(t, ContextTerminal, c.Class)
	assert.Less(t, c.Confidence, MismatchConfidenceThreshold)
}

func TestClassifyDetectsCopilotPromptByAriaLabel(t *testing.T) {
	c := Classify(pagedriver.NodeInfo{AriaLabel: "Ask the Copilot assistant"})
	assert.Equal(t, ContextCopilotPrompt, c.Class)
}

func TestClassifyDetectsCopilotPromptByClassList(t *testing.T) {
	c := Classify(pagedriver.NodeInfo{ClassList: []string{"inline-suggestion"}})
	assert.Equal(t, ContextCopilotPrompt, c.Class)
}

func TestClassifyDetectsInputFieldByTag(t *testing.T) {
	c := Classify(pagedriver.NodeInfo{Tag: "input"})
	assert.Equal(t, ContextInputField, c.Class)
	assert.Equal(t, 0.9, c.Confidence)
}

func TestClassifyReturnsUnknownForUnrecognizedSurface(t *testing.T) {
	c := Classify(pagedriver.NodeInfo{Tag: "div"})
	assert.Equal(t, ContextUnknown, c.Class)
	assert.Zero(t, c.Confidence)
}

func TestCheckPassesWhenExpectedIsEmpty(t *testing.T) {
	err := Check("", Classification{Class: ContextTerminal, Confidence: 0.95})
	assert.NoError(t, err)
}

func TestCheckPassesWhenObservedMatchesExpected(t *testing.T) {
	err := Check(ContextInputField, Classification{Class: ContextInputField, Confidence: 0.9})
	assert.NoError(t, err)
}

func TestCheckPassesWhenObservedIsUnknownRegardlessOfExpected(t *testing.T) {
	err := Check(ContextInputField, Classification{Class: ContextUnknown, Confidence: 0})
	assert.NoError(t, err)
}

func TestCheckPassesWhenConfidenceBelowThresholdDespiteMismatch(t *testing.T) {
	err := Check(ContextInputField, Classification{Class: ContextTerminal, Confidence: 0.5})
	assert.NoError(t, err, "a low-confidence mismatch is too uncertain to veto on")
}

func TestCheckVetoesHighConfidenceMismatch(t *testing.T) {
	err := Check(ContextInputField, Classification{Class: ContextTerminal, Confidence: 0.95})
	assert.Error(t, err)
	assert.True(t, errs.Is(err, errs.ContextMismatch))
}
