// Package recording owns the Recording/Bundle JSON codec, schema
// migration, and the per-run orchestration that drives a whole Recording
// through internal/engine and internal/conditional step by step. Grounded
// on the teacher's RecordingAction/Recording JSON shape
// (internal/recording/types.go, no longer present after adaptation) and
// its non-blocking "continue past a failed step" playback loop
// (internal/recording/playback_engine.go ExecutePlayback).
package recording

import (
	"encoding/json"
	"fmt"

	"github.com/rhealabs/raengine/internal/types"
)

// Encode serializes a Recording to its canonical JSON bundle form.
func Encode(r types.Recording) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Decode parses a JSON bundle into a Recording, migrating it to
// types.CurrentSchemaVersion if it was written by an older version.
func Decode(data []byte) (types.Recording, error) {
	var raw struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return types.Recording{}, fmt.Errorf("decode recording: %w", err)
	}

	migrated, err := Migrate(data, raw.SchemaVersion)
	if err != nil {
		return types.Recording{}, err
	}

	var rec types.Recording
	if err := json.Unmarshal(migrated, &rec); err != nil {
		return types.Recording{}, fmt.Errorf("decode migrated recording: %w", err)
	}
	if rec.LoopStartIndex == 0 && !hasExplicitLoopStart(data) {
		rec.LoopStartIndex = -1
	}
	return rec, nil
}

// hasExplicitLoopStart distinguishes an explicit loop_start_index of 0
// (loop from the first step) from the JSON zero value of a field that was
// never set by an old-schema recording.
func hasExplicitLoopStart(data []byte) bool {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return false
	}
	_, ok := raw["loop_start_index"]
	return ok
}
