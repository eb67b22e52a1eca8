package main

import (
	"context"
	"fmt"

	"github.com/rhealabs/raengine/internal/clock"
	"github.com/rhealabs/raengine/internal/config"
	"github.com/rhealabs/raengine/internal/engine"
	"github.com/rhealabs/raengine/internal/errs"
	"github.com/rhealabs/raengine/internal/healing"
	"github.com/rhealabs/raengine/internal/pagedriver"
	"github.com/rhealabs/raengine/internal/resilience"
	"github.com/rhealabs/raengine/internal/store"
	"github.com/rhealabs/raengine/internal/telemetry"
	"github.com/rhealabs/raengine/internal/vision"
)

// runtime bundles everything a subcommand needs to drive the engine
// against a real SQLite-backed store, closed via Close when done.
type runtime struct {
	DB           *store.DB
	HealingStore *store.HealingStore
	Cache        *healing.Cache
	Recorder     *telemetry.Recorder
	Engine       *engine.Engine
}

func (r *runtime) Close() error {
	if r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// newRuntime opens the configured store, hydrates the healing cache, and
// wires an Engine driven by a pagedriver.Fake — the reproducible
// in-memory driver spec §6's "fake driver by default, for reproducible
// demos" calls for, since raengine has no real browser transport.
func newRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	path, err := cfg.ExpandedStorePath()
	if err != nil {
		return nil, errs.New(errs.InvalidConfig, err.Error())
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, errs.New(errs.PersistenceFailed, fmt.Sprintf("open store: %v", err))
	}

	healingStore := store.NewHealingStore(db)
	telemetryStore := store.NewTelemetryStore(db)

	c := clock.Real{}
	cache := healing.NewCache(c, healingStore, cfg.HealMaxEntries, cfg.HealTTL, cfg.HealMinSuccessRate)
	if err := cache.Load(ctx); err != nil {
		_ = db.Close()
		return nil, errs.New(errs.PersistenceFailed, fmt.Sprintf("load healing cache: %v", err))
	}

	recorder := telemetry.NewRecorder(c, telemetryStore, 0)

	limiter := resilience.NewRateLimiter(c, cfg.RateLimitN, cfg.RateLimitWindow)
	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Name:                "vision-ocr",
		ConsecutiveFailures: cfg.BreakerFailThreshold,
		OpenDuration:        cfg.BreakerOpen,
		OnStateChange: func(from, to string) {
			ev := telemetry.NewEvent("", telemetry.EventBreakerStateChange, c.Now())
			ev.Detail = map[string]any{"from": from, "to": to}
			_ = recorder.Emit(ctx, ev)
		},
	})

	eng := &engine.Engine{
		Driver:           pagedriver.NewFake(c),
		Cache:            cache,
		Recorder:         recorder,
		OCR:              vision.StructuralOCR{},
		OCRConfidenceMin: cfg.OCRConfidenceMin,
		VisionLimit:      limiter,
		VisionBreak:      breaker,
		Clock:            c,
	}

	return &runtime{DB: db, HealingStore: healingStore, Cache: cache, Recorder: recorder, Engine: eng}, nil
}
