package telemetry

import (
	"context"
	"sort"

	"github.com/rhealabs/raengine/internal/types"
)

// StrategyStats is one strategy's aggregated outcomes over a time range
// (spec §4.9 analytics).
type StrategyStats struct {
	Strategy     types.StrategyKind
	Attempts     int
	Successes    int
	MeanLatencyMs float64
	P95LatencyMs  float64
}

// SuccessRate is Successes/Attempts, or 0 with no attempts.
func (s StrategyStats) SuccessRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Attempts)
}

// Report is the full analytics aggregation over a queried event window.
type Report struct {
	ByStrategy       []StrategyStats
	CacheHits        int
	CacheMisses      int
	BreakerStateChanges int
	RateLimitedEvents   int
}

// CacheHitRate is CacheHits/(CacheHits+CacheMisses), or 0 with no lookups.
func (r Report) CacheHitRate() float64 {
	total := r.CacheHits + r.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(r.CacheHits) / float64(total)
}

// Analyze queries rec for events matching f and aggregates them into a
// Report. This walks the full matched event set in memory; callers bound
// cost via f.Since/f.Until/f.Limit.
func Analyze(ctx context.Context, rec *Recorder, f Filter) (Report, error) {
	events, err := rec.Query(ctx, f)
	if err != nil {
		return Report{}, err
	}

	latencies := map[types.StrategyKind][]int64{}
	attempts := map[types.StrategyKind]int{}
	successes := map[types.StrategyKind]int{}
	var rep Report

	for _, e := range events {
		switch e.Kind {
		case EventStrategyAttempt, EventStrategySucceeded:
			attempts[e.Strategy]++
			if e.Success {
				successes[e.Strategy]++
			}
			latencies[e.Strategy] = append(latencies[e.Strategy], e.DurationMs)
		case EventCacheHit:
			rep.CacheHits++
		case EventCacheMiss:
			rep.CacheMisses++
		case EventBreakerStateChange:
			rep.BreakerStateChanges++
		case EventRateLimited:
			rep.RateLimitedEvents++
		}
	}

	var kinds []types.StrategyKind
	for k := range attempts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	for _, k := range kinds {
		ls := latencies[k]
		sort.Slice(ls, func(i, j int) bool { return ls[i] < ls[j] })
		rep.ByStrategy = append(rep.ByStrategy, StrategyStats{
			Strategy:      k,
			Attempts:      attempts[k],
			Successes:     successes[k],
			MeanLatencyMs: mean(ls),
			P95LatencyMs:  percentile(ls, 0.95),
		})
	}

	return rep, nil
}

func mean(xs []int64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum int64
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

func percentile(sorted []int64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return float64(sorted[idx])
}
