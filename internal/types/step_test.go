package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpectedContextClassForInputActions(t *testing.T) {
	for _, action := range []ActionKind{ActionInput, ActionEnter, ActionSelect} {
		assert.Equal(t, "input-field", Step{Action: action}.ExpectedContextClass())
	}
}

func TestExpectedContextClassEmptyForClickAndOpen(t *testing.T) {
	assert.Equal(t, "", Step{Action: ActionClick}.ExpectedContextClass())
	assert.Equal(t, "", Step{Action: ActionOpen}.ExpectedContextClass())
	assert.Equal(t, "", Step{Action: ActionConditionalClick}.ExpectedContextClass())
}
