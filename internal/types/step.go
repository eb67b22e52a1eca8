package types

// ActionKind enumerates the recorded user action kinds a Step may carry.
type ActionKind string

const (
	ActionOpen             ActionKind = "open"
	ActionClick            ActionKind = "click"
	ActionInput            ActionKind = "input"
	ActionEnter            ActionKind = "enter"
	ActionSelect           ActionKind = "select"
	ActionConditionalClick ActionKind = "conditional-click"
)

// RecordedVia records whether the step was located via DOM inspection or
// visually at recording time — used as a hint, never a hard requirement,
// during playback.
type RecordedVia string

const (
	RecordedViaDOM    RecordedVia = "dom"
	RecordedViaVision RecordedVia = "vision"
)

// Point is a recorded pointer coordinate, absolute in viewport pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ConditionalConfig configures a conditional-click Step (§4.5).
type ConditionalConfig struct {
	Labels            []string `json:"labels"`
	SuccessLabel      string   `json:"success_label,omitempty"`
	TimeoutMs         int      `json:"timeout_ms,omitempty"`
	PollMs            int      `json:"poll_ms,omitempty"`
	MaxClicks         int      `json:"max_clicks,omitempty"`
	ConfidenceMin     float64  `json:"confidence_min,omitempty"`
	PostClickDelayMs  int      `json:"post_click_delay_ms,omitempty"`
}

// Step is a single recorded user action plus everything needed to relocate
// and replay it.
type Step struct {
	ID                string             `json:"id"`
	Action            ActionKind         `json:"action"`
	Bundle            Bundle             `json:"bundle"`
	RecordedPointer   *Point             `json:"recorded_pointer,omitempty"`
	Value             string             `json:"value,omitempty"`
	Label             string             `json:"label,omitempty"`
	DelayMs           int                `json:"delay_ms,omitempty"`
	Conditional       *ConditionalConfig `json:"conditional,omitempty"`
	RecordedVia       RecordedVia        `json:"recorded_via,omitempty"`
	FallbackChain     *FallbackChain     `json:"fallback_chain,omitempty"`
	ActionabilityMs   int                `json:"actionability_timeout_ms,omitempty"`
}

// ExpectedContextClass is the context C9 validation expects to observe for
// this step (input-field for input, enter and select steps). Steps
// that target known non-form surfaces may leave this empty to skip the
// veto check entirely.
func (s Step) ExpectedContextClass() string {
	switch s.Action {
	case ActionInput, ActionEnter, ActionSelect:
		return "input-field"
	default:
		return ""
	}
}
