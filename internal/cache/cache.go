// Package cache keeps recent research bundles keyed by mode and normalized
// query. Entries live in memory and optionally read and write through to a
// persistent backend.
package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/deep-research/internal/canon"
	"github.com/sells-group/deep-research/internal/model"
)

// DefaultTTL is how long an entry stays fresh.
const DefaultTTL = 600 * time.Second

// Backend is the persistent tier. store.Store satisfies it.
type Backend interface {
	GetBundle(ctx context.Context, key string) (*model.CacheEntry, error)
	PutBundle(ctx context.Context, key string, entry model.CacheEntry, ttl time.Duration) error
	DeleteExpired(ctx context.Context) (int, error)
}

// Cache is safe for concurrent use. Concurrent puts for the same key are
// last-writer-wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]model.CacheEntry
	ttl     time.Duration
	backend Backend
	nowFunc func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.nowFunc = now }
}

// WithBackend adds a persistent tier. A nil backend is ignored.
func WithBackend(b Backend) Option {
	return func(c *Cache) {
		if b != nil {
			c.backend = b
		}
	}
}

// New creates a Cache. ttl <= 0 uses DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries: make(map[string]model.CacheEntry),
		ttl:     ttl,
		nowFunc: time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Key builds the cache key for a mode and raw query.
func Key(mode model.Mode, query string) string {
	return string(mode) + ":" + canon.NormalizeQuery(query)
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the fresh entry for mode and query. Expired memory entries are
// evicted on access. Backend errors are logged and count as a miss. The
// returned entry shares slices with the cache and must not be mutated.
func (c *Cache) Get(ctx context.Context, mode model.Mode, query string) (model.CacheEntry, bool) {
	key := Key(mode, query)
	now := c.nowFunc()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		if c.fresh(entry, now) {
			return entry, true
		}
		c.mu.Lock()
		if cur, still := c.entries[key]; still && !c.fresh(cur, now) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
	}

	if c.backend == nil {
		return model.CacheEntry{}, false
	}

	stored, err := c.backend.GetBundle(ctx, key)
	if err != nil {
		zap.L().Warn("cache: backend get failed", zap.String("key", key), zap.Error(err))
		return model.CacheEntry{}, false
	}
	if stored == nil || !c.fresh(*stored, now) {
		return model.CacheEntry{}, false
	}

	c.mu.Lock()
	c.entries[key] = *stored
	c.mu.Unlock()
	return *stored, true
}

// Put stores entry under mode and query, stamping it with the current time
// when Timestamp is zero. Expired memory entries are evicted on every put.
// Backend failures are logged, never returned.
func (c *Cache) Put(ctx context.Context, mode model.Mode, query string, entry model.CacheEntry) {
	key := Key(mode, query)
	now := c.nowFunc()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now
	}

	c.mu.Lock()
	c.evictLocked(now)
	c.entries[key] = entry
	c.mu.Unlock()

	if c.backend == nil {
		return
	}
	if err := c.backend.PutBundle(ctx, key, entry, c.ttl); err != nil {
		zap.L().Warn("cache: backend put failed", zap.String("key", key), zap.Error(err))
	}
}

// Sweep evicts expired entries from memory and the backend and returns the
// total removed.
func (c *Cache) Sweep(ctx context.Context) (int, error) {
	now := c.nowFunc()

	c.mu.Lock()
	removed := c.evictLocked(now)
	c.mu.Unlock()

	if c.backend == nil {
		return removed, nil
	}
	n, err := c.backend.DeleteExpired(ctx)
	return removed + n, err
}

// Len reports the number of in-memory entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictLocked drops expired memory entries. c.mu must be held for writing.
func (c *Cache) evictLocked(now time.Time) int {
	removed := 0
	for k, e := range c.entries {
		if !c.fresh(e, now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// fresh reports whether e is still live. An entry expires once it is older
// than the TTL.
func (c *Cache) fresh(e model.CacheEntry, now time.Time) bool {
	return now.Sub(e.Timestamp) <= c.ttl
}
