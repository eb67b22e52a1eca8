package healing

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/rhealabs/raengine/internal/clock"
	"github.com/rhealabs/raengine/internal/types"
)

// Persister is the durable backing store a Cache mirrors in memory. The
// concrete implementation is internal/store.HealingStore (SQLite); tests
// can supply an in-memory fake. All writes go through the cache first —
// the store is never read or written concurrently from more than one
// Cache (single-writer semantics, spec §5).
type Persister interface {
	Put(ctx context.Context, e Entry) error
	Delete(ctx context.Context, k Key) error
	LoadAll(ctx context.Context) ([]Entry, error)
}

// Cache is the in-memory mirror fronting a Persister, with TTL, LRU, and
// success-rate eviction (spec §4.2). All exported methods are safe for
// concurrent use.
type Cache struct {
	mu             sync.Mutex
	clock          clock.Clock
	store          Persister
	entries        map[Key]*list.Element // -> lru list element holding *Entry
	lru            *list.List            // front = most recently used
	maxSize        int
	ttl            time.Duration
	minSuccessRate float64
}

// NewCache constructs an empty Cache honoring the HEAL_MAX_ENTRIES/
// HEAL_TTL_MS/HEAL_MIN_SUCCESS_RATE knobs of spec §6. Zero-valued maxSize,
// ttl, or minSuccessRate fall back to the package defaults. Call Load to
// hydrate it from store at startup.
func NewCache(c clock.Clock, store Persister, maxSize int, ttl time.Duration, minSuccessRate float64) *Cache {
	if c == nil {
		c = clock.Real{}
	}
	if maxSize <= 0 {
		maxSize = MaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if minSuccessRate <= 0 {
		minSuccessRate = MinSuccessRate
	}
	return &Cache{
		clock:          c,
		store:          store,
		entries:        make(map[Key]*list.Element),
		lru:            list.New(),
		maxSize:        maxSize,
		ttl:            ttl,
		minSuccessRate: minSuccessRate,
	}
}

// Load hydrates the cache from the persister, dropping any entry already
// expired or already below the success-rate floor.
func (c *Cache) Load(ctx context.Context) error {
	all, err := c.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	for _, e := range all {
		if e.Expired(now) || e.EvictForSuccessRate(c.minSuccessRate) {
			continue
		}
		el := c.lru.PushFront(&e)
		c.entries[e.Key] = el
	}
	return nil
}

// Lookup returns the cached entry for key, if any, and whether it is
// still live (not expired, not success-rate evicted). A live hit is
// promoted to the front of the LRU list.
func (c *Cache) Lookup(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	e := el.Value.(*Entry)
	now := c.clock.Now()
	if e.Expired(now) || e.EvictForSuccessRate(c.minSuccessRate) {
		c.removeLocked(key)
		return Entry{}, false
	}
	c.lru.MoveToFront(el)
	return *e, true
}

// RecordSuccess marks key's entry as having successfully resolved via
// healedKind/args, extending its TTL, and persists the change. A miss
// creates a fresh entry.
func (c *Cache) RecordSuccess(ctx context.Context, key Key, healedKind types.StrategyKind, args types.LocatorArgs, confidence float64) error {
	now := c.clock.Now()
	c.mu.Lock()
	el, ok := c.entries[key]
	var e *Entry
	var evicted []Key
	if ok {
		e = el.Value.(*Entry)
		e.SuccessCount++
		e.LastSuccessAt = now
		e.ExpiresAt = now.Add(c.ttl)
		e.HealedKind = healedKind
		e.HealedArgs = args
		e.Confidence = confidence
		c.lru.MoveToFront(el)
	} else {
		e = &Entry{
			Key: key, HealedKind: healedKind, HealedArgs: args, Confidence: confidence,
			SuccessCount: 1, CreatedAt: now, LastSuccessAt: now, ExpiresAt: now.Add(c.ttl),
		}
		nel := c.lru.PushFront(e)
		c.entries[key] = nel
		evicted = c.evictOverCapacityLocked()
	}
	snapshot := *e
	c.mu.Unlock()

	for _, k := range evicted {
		if err := c.store.Delete(ctx, k); err != nil {
			return err
		}
	}
	return c.store.Put(ctx, snapshot)
}

// RecordFailure marks key's entry as having failed to resolve via the
// previously healed strategy. If the entry then falls below
// MinSuccessRate, it is evicted immediately rather than left to expire.
func (c *Cache) RecordFailure(ctx context.Context, key Key) error {
	c.mu.Lock()
	el, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	e := el.Value.(*Entry)
	e.FailureCount++
	if e.EvictForSuccessRate(c.minSuccessRate) {
		c.removeLocked(key)
		c.mu.Unlock()
		return c.store.Delete(ctx, key)
	}
	snapshot := *e
	c.mu.Unlock()
	return c.store.Put(ctx, snapshot)
}

// evictOverCapacityLocked drops the least-recently-used entries until the
// cache is at or under maxSize, returning the evicted keys so the caller
// can persist the deletions after releasing c.mu (store I/O never runs
// under the lock, and never as an unjoined goroutine — spec §5's
// single-writer cache mirror owns the store sequentially). Caller must
// hold c.mu.
func (c *Cache) evictOverCapacityLocked() []Key {
	var evicted []Key
	for len(c.entries) > c.maxSize {
		back := c.lru.Back()
		if back == nil {
			return evicted
		}
		e := back.Value.(*Entry)
		c.lru.Remove(back)
		delete(c.entries, e.Key)
		evicted = append(evicted, e.Key)
	}
	return evicted
}

// removeLocked drops key from both the map and the LRU list. Caller must
// hold c.mu.
func (c *Cache) removeLocked(key Key) {
	if el, ok := c.entries[key]; ok {
		c.lru.Remove(el)
		delete(c.entries, key)
	}
}

// Len reports the current number of live entries (test/telemetry helper).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
