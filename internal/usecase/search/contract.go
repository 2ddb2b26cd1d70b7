package search

import (
	"context"

	"github.com/tytac116/PropMatch/internal/domain"
)

// Retriever fetches vector-index candidates for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievedCandidate, error)
}

// ListingReader loads full listing records in one batched read.
type ListingReader interface {
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Listing, error)
}

// Reranker refines a ranked page with LLM relevance judgments.
// Implementations must degrade rather than fail: the bool reports
// whether any candidate fell back to its hybrid-only score.
type Reranker interface {
	Rerank(ctx context.Context, query string, cands []domain.ScoredCandidate) ([]domain.ScoredCandidate, bool)
}

// Warmer pre-generates explanations for a served page in the
// background. Implementations must return without blocking.
type Warmer interface {
	Warm(query string, cands []domain.ScoredCandidate)
}
