package expcache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tytac116/PropMatch/internal/domain"
)

// DefaultMemoryCacheSize is the LRU capacity used when the config does
// not override it.
const DefaultMemoryCacheSize = 4096

// memEntry pairs an explanation with its expiry so stale entries read
// as misses even though the LRU itself never expires.
type memEntry struct {
	exp       domain.Explanation
	expiresAt time.Time
}

// MemoryCache is an in-process explanation cache for single-instance
// deployments and tests. Same contract as RedisCache.
type MemoryCache struct {
	mu         sync.RWMutex
	cache      *lru.Cache[string, *memEntry]
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
}

// NewMemory creates an LRU-backed explanation cache. size <= 0 selects
// DefaultMemoryCacheSize.
func NewMemory(size int, ttl time.Duration, cacheTotal *prometheus.CounterVec) (*MemoryCache, error) {
	if size <= 0 {
		size = DefaultMemoryCacheSize
	}
	cache, err := lru.New[string, *memEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &MemoryCache{
		cache:      cache,
		ttl:        ttl,
		cacheTotal: cacheTotal,
	}, nil
}

// Get returns a cached explanation, treating expired entries as misses.
func (c *MemoryCache) Get(_ context.Context, query, listingID string) (*domain.Explanation, bool) {
	key := cacheKey(listingID, query)
	now := time.Now()

	c.mu.RLock()
	entry, found := c.cache.Get(key)
	c.mu.RUnlock()

	if !found {
		c.incCache("miss")
		return nil, false
	}

	if now.After(entry.expiresAt) {
		c.mu.Lock()
		c.cache.Remove(key)
		c.mu.Unlock()
		c.incCache("miss")
		return nil, false
	}

	exp := entry.exp
	c.incCache("hit")
	return &exp, true
}

// Put stores an explanation; writes overwrite stale entries in place.
func (c *MemoryCache) Put(_ context.Context, query, listingID string, exp *domain.Explanation) {
	entry := &memEntry{
		exp:       *exp,
		expiresAt: time.Now().Add(c.ttl),
	}
	entry.exp.CachedAt = time.Now().UTC()

	c.mu.Lock()
	c.cache.Add(cacheKey(listingID, query), entry)
	c.mu.Unlock()
}

// Invalidate removes every cached explanation for one listing.
func (c *MemoryCache) Invalidate(_ context.Context, listingID string) (int, error) {
	prefix := cacheKeyPrefix + listingID + ":"

	c.mu.Lock()
	defer c.mu.Unlock()

	deleted := 0
	for _, key := range c.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.cache.Remove(key)
			deleted++
		}
	}
	return deleted, nil
}

// InvalidateAll clears the cache.
func (c *MemoryCache) InvalidateAll(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.cache.Len()
	c.cache.Purge()
	return n, nil
}

func (c *MemoryCache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
