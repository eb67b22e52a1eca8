// Package healing implements C2, the Healing Cache: a persistent map from
// (page_url_pattern, step_kind, label, selector_hash) to the locator
// strategy that last resolved it, so a broken selector heals once and
// replays instantly thereafter. Grounded on the teacher's selector-repair
// semantics (internal/testgen/heal.go HealSelector/ClassifyHealedSelector
// confidence bands) generalized from a one-shot CLI repair into a
// persistent, TTL/LRU/success-rate-evicted cache fronting a durable store.
package healing

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/rhealabs/raengine/internal/types"
)

// DefaultTTL is how long a healed entry survives without a successful
// replay before it is eligible for eviction (spec §4.2 healing cache).
const DefaultTTL = 24 * time.Hour

// MaxEntries is the LRU eviction ceiling (HEAL_MAX_ENTRIES).
const MaxEntries = 1000

// MinSuccessRate is the floor below which an entry with enough attempts is
// evicted outright rather than left to expire (HEAL_MIN_SUCCESS_RATE).
const MinSuccessRate = 0.7

// MinAttemptsForRateEviction is the sample size required before
// MinSuccessRate eviction applies — a fresh entry's first failure should
// not evict it instantly.
const MinAttemptsForRateEviction = 3

// Key is the composite cache key (spec §3 HealingCacheEntry).
type Key struct {
	PageURLPattern string
	StepKind       string
	Label          string
	SelectorHash   string
}

// HashSelector derives the selector_hash component of a Key from the
// Bundle's original selector material, so two Bundles that differ only in
// bounding box still collide on the same cache entry.
func HashSelector(b types.Bundle) string {
	h := sha256.New()
	h.Write([]byte(b.ID))
	h.Write([]byte{0})
	h.Write([]byte(b.CSSSelector))
	h.Write([]byte{0})
	h.Write([]byte(b.XPath))
	h.Write([]byte{0})
	h.Write([]byte(b.VisibleText))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// KeyFor derives a Key from a Step's Bundle within the context of a page
// URL pattern (typically the step's recorded URL with query stripped).
func KeyFor(pageURLPattern string, step types.Step) Key {
	return Key{
		PageURLPattern: pageURLPattern,
		StepKind:       string(step.Action),
		Label:          step.Label,
		SelectorHash:   HashSelector(step.Bundle),
	}
}

// Entry is one Healing Cache record (spec §3 HealingCacheEntry).
type Entry struct {
	Key             Key
	HealedKind      types.StrategyKind
	HealedArgs      types.LocatorArgs
	Confidence      float64
	SuccessCount    int
	FailureCount    int
	CreatedAt       time.Time
	LastSuccessAt   time.Time
	ExpiresAt       time.Time
}

// Attempts is the total number of replays this entry has recorded.
func (e Entry) Attempts() int { return e.SuccessCount + e.FailureCount }

// SuccessRate is SuccessCount/Attempts, or 1.0 with no attempts yet (a
// fresh entry gets the benefit of the doubt).
func (e Entry) SuccessRate() float64 {
	if e.Attempts() == 0 {
		return 1.0
	}
	return float64(e.SuccessCount) / float64(e.Attempts())
}

// Expired reports whether now is past ExpiresAt.
func (e Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// EvictForSuccessRate reports whether this entry should be evicted outright
// for a success rate below minRate, once it has enough samples to judge
// (spec invariant: "no entry with <3 attempts is rate-evicted").
func (e Entry) EvictForSuccessRate(minRate float64) bool {
	return e.Attempts() >= MinAttemptsForRateEviction && e.SuccessRate() < minRate
}
