// services/cache_service.go
package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CacheService is a generic in-process TTL cache with fetch-on-miss semantics.
//
// An entry is fresh iff now - cached_at < ttl; an entry whose age equals the
// TTL exactly is stale. Staleness is decided at read time — entries never
// self-expire in storage, which is what makes serve-stale-on-error possible.
// Concurrent misses for the same key coalesce into one in-flight fetch.
type CacheService[V any] struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]cacheEntry[V]
}

type cacheEntry[V any] struct {
	value    V
	cachedAt time.Time
}

func NewCacheService[V any](ttl time.Duration) *CacheService[V] {
	return &CacheService[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry[V]),
	}
}

// Get returns the cached value for key if fresh; otherwise it invokes fetch.
// On fetch success the new value is stored with cached_at = now. On fetch
// failure a stale entry, if any, is served with degraded = true; with no
// entry at all the error is propagated.
func (c *CacheService[V]) Get(ctx context.Context, key string, fetch func(ctx context.Context) (V, error)) (value V, degraded bool, err error) {
	if v, ok := c.lookup(key); ok {
		return v, false, nil
	}

	res, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A coalesced caller may arrive after the flight leader already
		// refreshed the entry.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, v)
		return v, nil
	})
	if err != nil {
		c.mu.RLock()
		stale, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return stale.value, true, nil
		}
		var zero V
		return zero, false, err
	}
	return res.(V), false, nil
}

// Invalidate drops the entry for key, if present.
func (c *CacheService[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *CacheService[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *CacheService[V]) lookup(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.cachedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *CacheService[V]) store(key string, v V) {
	c.mu.Lock()
	c.entries[key] = cacheEntry[V]{value: v, cachedAt: c.now()}
	c.mu.Unlock()
}
