package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rhealabs/raengine/internal/telemetry"
	"github.com/rhealabs/raengine/internal/types"
)

// TelemetryStore implements telemetry.Sink against the shared DB.
type TelemetryStore struct {
	db *DB
}

// NewTelemetryStore returns a TelemetryStore backed by db.
func NewTelemetryStore(db *DB) *TelemetryStore {
	return &TelemetryStore{db: db}
}

// Append persists e. Telemetry is write-once: no upsert, every event gets
// its own row keyed by its uuid.
func (s *TelemetryStore) Append(ctx context.Context, e telemetry.Event) error {
	detailJSON, err := json.Marshal(e.Detail)
	if err != nil {
		return fmt.Errorf("marshal event detail: %w", err)
	}
	_, err = s.db.db.ExecContext(ctx, `
		INSERT INTO telemetry_events (
			id, run_id, step_id, kind, strategy, confidence,
			duration_ms, success, detail_json, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.RunID, e.StepID, string(e.Kind), string(e.Strategy), e.Confidence,
		e.DurationMs, boolToInt(e.Success), string(detailJSON), e.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append telemetry event: %w", err)
	}
	return nil
}

// Query returns events matching f, most recent first.
func (s *TelemetryStore) Query(ctx context.Context, f telemetry.Filter) ([]telemetry.Event, error) {
	var where []string
	var args []any

	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Since != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, millisToRFC3339(*f.Since))
	}
	if f.Until != nil {
		where = append(where, "timestamp <= ?")
		args = append(args, millisToRFC3339(*f.Until))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 500
	}

	query := "SELECT id, run_id, step_id, kind, strategy, confidence, duration_ms, success, detail_json, timestamp FROM telemetry_events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query telemetry events: %w", err)
	}
	defer rows.Close()

	var out []telemetry.Event
	for rows.Next() {
		var e telemetry.Event
		var stepID, strategy, detailJSON, ts sql.NullString
		var kind string
		var success int
		if err := rows.Scan(&e.ID, &e.RunID, &stepID, &kind, &strategy, &e.Confidence,
			&e.DurationMs, &success, &detailJSON, &ts); err != nil {
			return nil, fmt.Errorf("scan telemetry event: %w", err)
		}
		e.Kind = telemetry.EventKind(kind)
		e.StepID = stepID.String
		e.Strategy = types.StrategyKind(strategy.String)
		e.Success = success != 0
		if detailJSON.Valid && detailJSON.String != "" {
			if err := json.Unmarshal([]byte(detailJSON.String), &e.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal event detail: %w", err)
			}
		}
		e.Timestamp = parseTime(ts.String)
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func millisToRFC3339(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}
