package domain

import "strings"

// SearchQuery is a single free-text search request. Ephemeral, created
// per request. Explain asks for the LLM re-rank pass on the returned
// page.
type SearchQuery struct {
	Text    string
	Limit   int
	Page    int
	Explain bool
}

// MaxCandidates bounds the retrieval fan-out so downstream scoring work
// stays bounded regardless of the requested page size.
const MaxCandidates = 200

// KeyPrefix namespaces every Redis key the service writes (caches,
// budgets). The vector index key prefix is configured separately.
const KeyPrefix = "propmatch:"

// NormalizeQuery trims, case-folds and collapses whitespace. Cache keys
// and lexical tokenization both operate on the normalized form so that
// trivially different spellings of the same query behave identically.
func NormalizeQuery(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(text))), " ")
}

// CandidatePool returns how many candidates to retrieve for a requested
// result count: enough of a pool that re-ranking the first page is
// meaningful, capped at MaxCandidates.
func CandidatePool(limit int) int {
	k := limit * 4
	if k < limit+10 {
		k = limit + 10
	}
	if k > MaxCandidates {
		k = MaxCandidates
	}
	return k
}
