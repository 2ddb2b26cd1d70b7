package expcache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tytac116/PropMatch/internal/db"
	"github.com/tytac116/PropMatch/internal/domain"
)

// mockStore implements the store interface with overridable functions.
type mockStore struct {
	getFn        func(ctx context.Context, key string) ([]byte, error)
	setWithTTLFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	delFn        func(ctx context.Context, key string) error
	scanFn       func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setWithTTLFn != nil {
		return m.setWithTTLFn(ctx, key, value, ttl)
	}
	return nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func newTestRedisCache(s store) *RedisCache {
	return NewRedis(s, 10*time.Minute, nil, zap.NewNop())
}

func testExplanation(listingID string) *domain.Explanation {
	return &domain.Explanation{
		ListingID:  listingID,
		MatchScore: 87,
		PositivePoints: []domain.ExplanationPoint{
			{Claim: "Family-sized garden", Detail: "Large garden with established trees"},
		},
		NegativePoints: []domain.ExplanationPoint{
			{Claim: "No pool", Detail: "The query asked for a pool"},
		},
		Summary: "A strong match for a family home in Claremont.",
	}
}
