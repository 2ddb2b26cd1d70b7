// Package explain implements the LLM re-rank and explanation pass.
// It consumes the hybrid-ranked page, asks a chat model to score each
// listing against the query and justify the score, and degrades to the
// hybrid-only score whenever the model cannot deliver.
package explain

import (
	"context"

	"github.com/tytac116/PropMatch/internal/domain"
)

// ChatProvider is the chat completion contract the explainer needs:
// structured completions for the batch path and streaming for the SSE
// path. Both request JSON output.
type ChatProvider interface {
	domain.ChatCompleter
	domain.ChatStreamer
}

// Cache stores generated explanations keyed by normalized query text
// plus listing identifier. Implementations treat corrupt entries as
// misses and expire entries on their own TTL.
type Cache interface {
	Get(ctx context.Context, query, listingID string) (*domain.Explanation, bool)
	Put(ctx context.Context, query, listingID string, exp *domain.Explanation)
}

// ListingReader loads a single listing for the standalone explanation
// paths.
type ListingReader interface {
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
}

// BudgetGuard gates chat spend. Check reports domain.ErrBudgetExhausted
// when the configured budget action blocks further calls; Record books
// consumed tokens after each call.
type BudgetGuard interface {
	Check(ctx context.Context) error
	Record(tokens int64)
}
