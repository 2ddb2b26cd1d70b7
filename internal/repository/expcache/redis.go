package expcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tytac116/PropMatch/internal/db"
	"github.com/tytac116/PropMatch/internal/domain"
)

// store is the consumer interface for the Redis explanation cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// RedisCache stores explanations in Redis with the freshness window
// enforced by key TTL. A purely additive performance layer: every read
// failure degrades to a miss, never to a request failure.
type RedisCache struct {
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// NewRedis creates a Redis-backed explanation cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func NewRedis(
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *RedisCache {
	return &RedisCache{
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Get returns a cached explanation for the (query, listing) pair.
// Corrupt entries count as a miss and are deleted so the next Put
// overwrites cleanly.
func (c *RedisCache) Get(ctx context.Context, query, listingID string) (*domain.Explanation, bool) {
	key := cacheKey(listingID, query)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to read cached explanation", zap.String("key", key), zap.Error(err))
		}
		c.incCache("miss")
		return nil, false
	}

	var exp domain.Explanation
	if err := json.Unmarshal(data, &exp); err != nil {
		c.logger.Warn("Corrupt cached explanation, deleting",
			zap.String("key", key), zap.Error(err))
		if delErr := c.store.Del(ctx, key); delErr != nil {
			c.logger.Warn("Failed to delete corrupt explanation", zap.String("key", key), zap.Error(delErr))
		}
		c.incCache("miss")
		return nil, false
	}

	c.incCache("hit")
	return &exp, true
}

// Put stores an explanation under the freshness TTL. CachedAt is
// stamped here so readers can surface entry age.
func (c *RedisCache) Put(ctx context.Context, query, listingID string, exp *domain.Explanation) {
	entry := *exp
	entry.CachedAt = time.Now().UTC()

	data, err := json.Marshal(&entry)
	if err != nil {
		c.logger.Warn("Failed to marshal explanation", zap.String("listing_id", listingID), zap.Error(err))
		return
	}

	key := cacheKey(listingID, query)
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache explanation", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate removes every cached explanation for one listing and
// returns the number of deleted entries.
func (c *RedisCache) Invalidate(ctx context.Context, listingID string) (int, error) {
	return c.deleteByPattern(ctx, listingPattern(listingID))
}

// InvalidateAll clears the entire explanation cache.
func (c *RedisCache) InvalidateAll(ctx context.Context) (int, error) {
	return c.deleteByPattern(ctx, allPattern())
}

func (c *RedisCache) deleteByPattern(ctx context.Context, pattern string) (int, error) {
	keys, err := c.store.Scan(ctx, pattern)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, key := range keys {
		if err := c.store.Del(ctx, key); err != nil {
			c.logger.Warn("Failed to delete cached explanation", zap.String("key", key), zap.Error(err))
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (c *RedisCache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
