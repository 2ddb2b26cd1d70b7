package domain

import "errors"

var (
	// ErrRetrievalUnavailable signals that the vector index or the
	// embedding provider is unreachable. The only error allowed to
	// abort a search; callers must surface degraded mode, never a
	// silently empty result set.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrListingNotFound signals a missing listing record.
	ErrListingNotFound = errors.New("listing not found")
	// ErrInvalidQuery signals an unusable search request.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrMetadataParseAmbiguous signals contradictory constraints in a
	// query. Non-fatal: adjustments default to zero.
	ErrMetadataParseAmbiguous = errors.New("metadata parse ambiguous")
	// ErrLLMTimeout signals that the language model exceeded its hard
	// deadline. Triggers the retry-then-fallback path.
	ErrLLMTimeout = errors.New("llm timeout")
	// ErrLLMMalformedResponse signals an unparseable language model
	// response. Triggers the retry-then-fallback path.
	ErrLLMMalformedResponse = errors.New("llm malformed response")
	// ErrLLMProviderError signals a language model API failure.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrCacheCorrupt signals an unreadable cache entry. Treated as a
	// miss; the entry is overwritten on next successful generation.
	ErrCacheCorrupt = errors.New("cache corrupt")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRateLimited signals a provider rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrBudgetExhausted signals an exhausted LLM token budget.
	// Explanations degrade to fallback; search itself is unaffected.
	ErrBudgetExhausted = errors.New("token budget exhausted")
)
