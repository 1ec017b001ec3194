package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long a looked-up active rule set is reused.
const DefaultCacheTTL = 60 * time.Second

// loadTimeout bounds a shared refresh, which no longer follows any one caller's context.
const loadTimeout = 10 * time.Second

// ActiveLoader finds the rule set in force at asOf, or nil when none is.
type ActiveLoader interface {
	FindActive(ctx context.Context, asOf time.Time) (*RuleSet, error)
}

// CacheRecorder observes cache hits and misses.
type CacheRecorder interface {
	RuleSetCacheLookup(hit bool)
}

type cacheEntry struct {
	value     *RuleSet
	fetchedAt time.Time
}

// Cache memoises the active rule set for a TTL. A missing rule set is cached
// too. Concurrent refreshes share a single store lookup.
type Cache struct {
	loader   ActiveLoader
	ttl      time.Duration
	recorder CacheRecorder

	mu         sync.RWMutex
	entry      *cacheEntry
	generation uint64

	group singleflight.Group
}

func NewCache(loader ActiveLoader, ttl time.Duration) (*Cache, error) {
	if loader == nil {
		return nil, fmt.Errorf("rule set loader required")
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{loader: loader, ttl: ttl}, nil
}

// WithRecorder attaches a hit/miss observer.
func (c *Cache) WithRecorder(r CacheRecorder) *Cache {
	c.recorder = r
	return c
}

// GetActive returns the rule set active at now, refreshing when the cached
// value is older than the TTL.
func (c *Cache) GetActive(ctx context.Context, now time.Time) (*RuleSet, error) {
	c.mu.RLock()
	entry, gen := c.entry, c.generation
	c.mu.RUnlock()

	if entry != nil && now.Sub(entry.fetchedAt) < c.ttl {
		c.record(true)
		return entry.value, nil
	}
	c.record(false)

	ch := c.group.DoChan(fmt.Sprintf("active:%d", gen), func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		rs, err := c.loader.FindActive(loadCtx, now)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		// drop results that raced an invalidation
		if c.generation == gen {
			c.entry = &cacheEntry{value: rs, fetchedAt: now}
		}
		c.mu.Unlock()
		return rs, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*RuleSet), nil
	}
}

// Invalidate forgets the cached value so the next lookup hits the store.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.generation++
	c.mu.Unlock()
}

func (c *Cache) record(hit bool) {
	if c.recorder != nil {
		c.recorder.RuleSetCacheLookup(hit)
	}
}
