package recording

import (
	"encoding/json"
	"fmt"

	"github.com/rhealabs/raengine/internal/types"
)

// migrationFunc upgrades a raw recording document by exactly one schema
// version, from fromVersion to fromVersion+1. Migrations are additive —
// they only ever add or default a field, never remove one, so documents
// written by a newer engine can still be read (ignoring fields they don't
// recognize) by an older one. Mirrors the teacher's lazy,
// version-tracked migration style (five82-spindle's
// internal/queue/migrations.go applyMigrations), adapted from SQL schema
// migrations to JSON document migrations since recordings are files, not
// database rows.
type migrationFunc func(doc map[string]any) map[string]any

// migrations maps "upgrade from version N" to its migration function.
// Empty today since types.CurrentSchemaVersion is 1 and there is no
// version 0 document shape to upgrade from; add an entry here keyed by N
// whenever CurrentSchemaVersion increments past N+1.
var migrations = map[int]migrationFunc{}

// Migrate upgrades raw recording JSON from fromVersion to
// types.CurrentSchemaVersion, applying each registered migration in
// sequence. A fromVersion already at or above current is returned
// unchanged. A fromVersion with no path to current (a gap in the registry)
// is an error rather than a silent no-op.
func Migrate(data []byte, fromVersion int) ([]byte, error) {
	if fromVersion >= types.CurrentSchemaVersion {
		return data, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	for v := fromVersion; v < types.CurrentSchemaVersion; v++ {
		fn, ok := migrations[v]
		if !ok {
			return nil, fmt.Errorf("migrate: no migration registered for schema version %d", v)
		}
		doc = fn(doc)
	}
	doc["schema_version"] = types.CurrentSchemaVersion

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("migrate: re-encode: %w", err)
	}
	return out, nil
}
