package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rhealabs/raengine/internal/healing"
	"github.com/rhealabs/raengine/internal/types"
)

// HealingStore implements healing.Persister against the shared DB.
type HealingStore struct {
	db *DB
}

// NewHealingStore returns a HealingStore backed by db.
func NewHealingStore(db *DB) *HealingStore {
	return &HealingStore{db: db}
}

// Put upserts e, keyed by its composite (page_url_pattern, step_kind,
// label, selector_hash) primary key.
func (s *HealingStore) Put(ctx context.Context, e healing.Entry) error {
	argsJSON, err := json.Marshal(e.HealedArgs)
	if err != nil {
		return fmt.Errorf("marshal healed args: %w", err)
	}
	_, err = s.db.db.ExecContext(ctx, `
		INSERT INTO healing_entries (
			page_url_pattern, step_kind, label, selector_hash,
			healed_kind, healed_args_json, confidence,
			success_count, failure_count, created_at, last_success_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(page_url_pattern, step_kind, label, selector_hash) DO UPDATE SET
			healed_kind = excluded.healed_kind,
			healed_args_json = excluded.healed_args_json,
			confidence = excluded.confidence,
			success_count = excluded.success_count,
			failure_count = excluded.failure_count,
			last_success_at = excluded.last_success_at,
			expires_at = excluded.expires_at
	`,
		e.Key.PageURLPattern, e.Key.StepKind, e.Key.Label, e.Key.SelectorHash,
		string(e.HealedKind), string(argsJSON), e.Confidence,
		e.SuccessCount, e.FailureCount,
		e.CreatedAt.Format(time.RFC3339Nano), e.LastSuccessAt.Format(time.RFC3339Nano), e.ExpiresAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put healing entry: %w", err)
	}
	return nil
}

// Delete removes the entry for k, if present.
func (s *HealingStore) Delete(ctx context.Context, k healing.Key) error {
	_, err := s.db.db.ExecContext(ctx, `
		DELETE FROM healing_entries
		WHERE page_url_pattern = ? AND step_kind = ? AND label = ? AND selector_hash = ?
	`, k.PageURLPattern, k.StepKind, k.Label, k.SelectorHash)
	if err != nil {
		return fmt.Errorf("delete healing entry: %w", err)
	}
	return nil
}

// LoadAll returns every persisted entry, for Cache.Load at startup.
func (s *HealingStore) LoadAll(ctx context.Context) ([]healing.Entry, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT page_url_pattern, step_kind, label, selector_hash,
		       healed_kind, healed_args_json, confidence,
		       success_count, failure_count, created_at, last_success_at, expires_at
		FROM healing_entries
	`)
	if err != nil {
		return nil, fmt.Errorf("load healing entries: %w", err)
	}
	defer rows.Close()

	var out []healing.Entry
	for rows.Next() {
		var e healing.Entry
		var healedKind, argsJSON, createdAt, lastSuccessAt, expiresAt string
		if err := rows.Scan(
			&e.Key.PageURLPattern, &e.Key.StepKind, &e.Key.Label, &e.Key.SelectorHash,
			&healedKind, &argsJSON, &e.Confidence,
			&e.SuccessCount, &e.FailureCount, &createdAt, &lastSuccessAt, &expiresAt,
		); err != nil {
			return nil, fmt.Errorf("scan healing entry: %w", err)
		}
		e.HealedKind = types.StrategyKind(healedKind)
		if err := json.Unmarshal([]byte(argsJSON), &e.HealedArgs); err != nil {
			return nil, fmt.Errorf("unmarshal healed args: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		e.LastSuccessAt = parseTime(lastSuccessAt)
		e.ExpiresAt = parseTime(expiresAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
