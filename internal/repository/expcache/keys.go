package expcache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/tytac116/PropMatch/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "exp:"

// cacheKey builds the per-listing, per-query cache key. The listing ID
// sits before the query hash so one listing's entries share a scannable
// prefix and Invalidate stays a single SCAN.
func cacheKey(listingID, query string) string {
	return cacheKeyPrefix + listingID + ":" + queryHash(query)
}

// queryHash hashes the normalized query so spelling-equivalent queries
// address the same entry.
func queryHash(query string) string {
	h := sha256.Sum256([]byte(domain.NormalizeQuery(query)))
	return hex.EncodeToString(h[:])
}

func listingPattern(listingID string) string {
	return cacheKeyPrefix + listingID + ":*"
}

func allPattern() string {
	return cacheKeyPrefix + "*"
}
