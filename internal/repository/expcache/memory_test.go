package expcache

import (
	"context"
	"testing"
	"time"
)

func newTestMemoryCache(t *testing.T, ttl time.Duration) *MemoryCache {
	t.Helper()
	cache, err := NewMemory(16, ttl, nil)
	if err != nil {
		t.Fatalf("failed to create memory cache: %v", err)
	}
	return cache
}

func TestMemoryCache_PutThenGet(t *testing.T) {
	cache := newTestMemoryCache(t, time.Minute)

	cache.Put(context.Background(), "family home", "prop_001", testExplanation("prop_001"))

	exp, ok := cache.Get(context.Background(), "family home", "prop_001")
	if !ok {
		t.Fatal("expected hit after put")
	}
	if exp.ListingID != "prop_001" {
		t.Errorf("expected listing prop_001, got %s", exp.ListingID)
	}
	if exp.CachedAt.IsZero() {
		t.Error("expected CachedAt to be stamped on put")
	}
}

func TestMemoryCache_Miss(t *testing.T) {
	cache := newTestMemoryCache(t, time.Minute)

	if _, ok := cache.Get(context.Background(), "family home", "prop_001"); ok {
		t.Fatal("expected miss on empty cache")
	}
}

func TestMemoryCache_ExpiredEntryIsMiss(t *testing.T) {
	cache := newTestMemoryCache(t, 10*time.Millisecond)

	cache.Put(context.Background(), "family home", "prop_001", testExplanation("prop_001"))
	time.Sleep(20 * time.Millisecond)

	if _, ok := cache.Get(context.Background(), "family home", "prop_001"); ok {
		t.Fatal("expected expired entry to read as a miss")
	}
	if cache.cache.Len() != 0 {
		t.Errorf("expected expired entry to be evicted, cache holds %d", cache.cache.Len())
	}
}

func TestMemoryCache_GetReturnsCopy(t *testing.T) {
	cache := newTestMemoryCache(t, time.Minute)
	cache.Put(context.Background(), "family home", "prop_001", testExplanation("prop_001"))

	first, _ := cache.Get(context.Background(), "family home", "prop_001")
	first.Summary = "mutated"

	second, _ := cache.Get(context.Background(), "family home", "prop_001")
	if second.Summary == "mutated" {
		t.Error("Get must not hand out a shared pointer")
	}
}

func TestMemoryCache_EquivalentQueriesShareEntry(t *testing.T) {
	cache := newTestMemoryCache(t, time.Minute)

	cache.Put(context.Background(), "  Family   HOME  ", "prop_001", testExplanation("prop_001"))

	if _, ok := cache.Get(context.Background(), "family home", "prop_001"); !ok {
		t.Fatal("normalized queries should share an entry")
	}
}

func TestMemoryCache_Invalidate(t *testing.T) {
	cache := newTestMemoryCache(t, time.Minute)
	ctx := context.Background()

	cache.Put(ctx, "family home", "prop_001", testExplanation("prop_001"))
	cache.Put(ctx, "sea view apartment", "prop_001", testExplanation("prop_001"))
	cache.Put(ctx, "family home", "prop_002", testExplanation("prop_002"))

	n, err := cache.Invalidate(ctx, "prop_001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deletions, got %d", n)
	}

	if _, ok := cache.Get(ctx, "family home", "prop_001"); ok {
		t.Error("prop_001 entries should be gone")
	}
	if _, ok := cache.Get(ctx, "family home", "prop_002"); !ok {
		t.Error("prop_002 entry should survive")
	}
}

func TestMemoryCache_InvalidateAll(t *testing.T) {
	cache := newTestMemoryCache(t, time.Minute)
	ctx := context.Background()

	cache.Put(ctx, "family home", "prop_001", testExplanation("prop_001"))
	cache.Put(ctx, "family home", "prop_002", testExplanation("prop_002"))

	n, err := cache.InvalidateAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deletions, got %d", n)
	}
	if cache.cache.Len() != 0 {
		t.Errorf("expected empty cache, holds %d", cache.cache.Len())
	}
}

func TestMemoryCache_DefaultSize(t *testing.T) {
	// lru.New rejects size <= 0, so success proves the default applied.
	cache, err := NewMemory(0, time.Minute, nil)
	if err != nil {
		t.Fatalf("failed to create memory cache with default size: %v", err)
	}

	cache.Put(context.Background(), "family home", "prop_001", testExplanation("prop_001"))
	if _, ok := cache.Get(context.Background(), "family home", "prop_001"); !ok {
		t.Error("cache with default size should store entries")
	}
}
