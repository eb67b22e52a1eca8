package types

// CurrentSchemaVersion is the schema version newly-created recordings are
// stamped with. schema_version is monotonic; migrations are lazy and
// additive (see internal/recording.Migrate) — never delete a field.
const CurrentSchemaVersion = 1

// ConditionalDefaults supplies recording-wide defaults for any Step whose
// ConditionalConfig omits a value.
type ConditionalDefaults struct {
	Terms         []string `json:"terms,omitempty"`
	TimeoutMs     int      `json:"timeout_ms,omitempty"`
	ConfidenceMin float64  `json:"confidence_min,omitempty"`
}

// Recording is an ordered, finite sequence of Steps plus playback-wide
// knobs.
type Recording struct {
	SchemaVersion       int                  `json:"schema_version"`
	ID                  string               `json:"id"`
	Name                string               `json:"name,omitempty"`
	Steps               []Step               `json:"steps"`
	GlobalDelayMs       int                  `json:"global_delay_ms"`
	LoopStartIndex      int                  `json:"loop_start_index"` // -1 disables looping
	ConditionalDefaults ConditionalDefaults  `json:"conditional_defaults,omitempty"`
}

// NewRecording returns a Recording stamped with the current schema version
// and looping disabled, ready to have Steps appended.
func NewRecording(id, name string) Recording {
	return Recording{
		SchemaVersion:  CurrentSchemaVersion,
		ID:             id,
		Name:           name,
		LoopStartIndex: -1,
	}
}

// Loops reports whether playback should wrap back to LoopStartIndex after
// the last step instead of ending.
func (r Recording) Loops() bool {
	return r.LoopStartIndex >= 0 && r.LoopStartIndex < len(r.Steps)
}
