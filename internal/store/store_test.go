package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhealabs/raengine/internal/healing"
	"github.com/rhealabs/raengine/internal/telemetry"
	"github.com/rhealabs/raengine/internal/types"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.db")
	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenAppliesMigrationsIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db2.Close())
}

func TestHealingStorePutThenLoadAllRoundTrips(t *testing.T) {
	db := openTestDB(t)
	s := NewHealingStore(db)
	now := time.Now().UTC().Truncate(time.Second)

	e := healing.Entry{
		Key:           healing.Key{PageURLPattern: "example.com/checkout", StepKind: "click", Label: "submit", SelectorHash: "abc123"},
		HealedKind:    types.StrategyCSS,
		HealedArgs:    types.LocatorArgs{Selector: ".btn-submit"},
		Confidence:    0.8,
		SuccessCount:  3,
		FailureCount:  1,
		CreatedAt:     now,
		LastSuccessAt: now,
		ExpiresAt:     now.Add(24 * time.Hour),
	}
	require.NoError(t, s.Put(context.Background(), e))

	all, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, e.Key, all[0].Key)
	assert.Equal(t, e.HealedArgs, all[0].HealedArgs)
	assert.Equal(t, 3, all[0].SuccessCount)
}

func TestHealingStorePutUpsertsOnConflict(t *testing.T) {
	db := openTestDB(t)
	s := NewHealingStore(db)
	key := healing.Key{PageURLPattern: "example.com", StepKind: "click", Label: "x", SelectorHash: "h1"}
	now := time.Now().UTC().Truncate(time.Second)

	first := healing.Entry{Key: key, SuccessCount: 1, CreatedAt: now, LastSuccessAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.Put(context.Background(), first))

	second := first
	second.SuccessCount = 5
	require.NoError(t, s.Put(context.Background(), second))

	all, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1, "same key must upsert, not insert a second row")
	assert.Equal(t, 5, all[0].SuccessCount)
}

func TestHealingStoreDeleteRemovesEntry(t *testing.T) {
	db := openTestDB(t)
	s := NewHealingStore(db)
	key := healing.Key{PageURLPattern: "example.com", StepKind: "click", Label: "x", SelectorHash: "h1"}
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, s.Put(context.Background(), healing.Entry{Key: key, CreatedAt: now, LastSuccessAt: now, ExpiresAt: now}))
	require.NoError(t, s.Delete(context.Background(), key))

	all, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTelemetryStoreAppendThenQueryByRunID(t *testing.T) {
	db := openTestDB(t)
	s := NewTelemetryStore(db)

	ev1 := telemetry.NewEvent("run-1", telemetry.EventStrategySucceeded, time.Now())
	ev1.Strategy = types.StrategyCSS
	ev1.Success = true
	ev2 := telemetry.NewEvent("run-2", telemetry.EventStrategySucceeded, time.Now())

	require.NoError(t, s.Append(context.Background(), ev1))
	require.NoError(t, s.Append(context.Background(), ev2))

	events, err := s.Query(context.Background(), telemetry.Filter{RunID: "run-1"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ev1.ID, events[0].ID)
	assert.True(t, events[0].Success)
}

func TestTelemetryStoreQueryOrdersMostRecentFirst(t *testing.T) {
	db := openTestDB(t)
	s := NewTelemetryStore(db)
	base := time.Now().Truncate(time.Second)

	older := telemetry.NewEvent("run-1", telemetry.EventStrategyAttempt, base)
	newer := telemetry.NewEvent("run-1", telemetry.EventStrategySucceeded, base.Add(time.Minute))
	require.NoError(t, s.Append(context.Background(), older))
	require.NoError(t, s.Append(context.Background(), newer))

	events, err := s.Query(context.Background(), telemetry.Filter{RunID: "run-1"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, newer.ID, events[0].ID)
}

func TestTelemetryStoreQueryRespectsLimit(t *testing.T) {
	db := openTestDB(t)
	s := NewTelemetryStore(db)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(context.Background(), telemetry.NewEvent("run-1", telemetry.EventStrategyAttempt, time.Now())))
	}

	events, err := s.Query(context.Background(), telemetry.Filter{RunID: "run-1", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
