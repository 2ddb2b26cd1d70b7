package vector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tytac116/PropMatch/internal/db"
	"github.com/tytac116/PropMatch/internal/domain"
)

// store is the consumer interface for vector index operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// embedder turns query text into a vector.
type embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Config holds the vector index layout.
type Config struct {
	IndexName  string
	KeyPrefix  string
	Dimensions int
}

// Repo retrieves candidate listings by vector similarity.
type Repo struct {
	store    store
	embedder embedder
	cfg      Config
}

// New creates a vector retrieval repository.
func New(s store, e embedder, cfg Config) *Repo {
	return &Repo{store: s, embedder: e, cfg: cfg}
}

// Retrieve embeds the query text and runs a KNN search, returning up to k
// candidates ordered by descending similarity. Embedding and index
// failures both map to domain.ErrRetrievalUnavailable so callers can
// answer 503; neither may pass as an empty result.
func (r *Repo) Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievedCandidate, error) {
	if k <= 0 {
		return nil, fmt.Errorf("candidate count must be positive, got %d", k)
	}
	if k > domain.MaxCandidates {
		k = domain.MaxCandidates
	}

	emb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w: %w", domain.ErrRetrievalUnavailable, err)
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.IndexName,
		Vector:       emb.Embedding,
		K:            k,
		ReturnFields: []string{"__vector_score"},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %v: %w", err, domain.ErrRetrievalUnavailable)
	}

	candidates := make([]domain.RetrievedCandidate, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		candidates = append(candidates, domain.RetrievedCandidate{
			ListingID:  strings.TrimPrefix(entry.Key, r.cfg.KeyPrefix),
			Similarity: entry.Score,
		})
	}

	return candidates, nil
}

// EnsureIndex creates the listing vector index when absent. Losing the
// create race to another instance is not an error.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.cfg.IndexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.cfg.IndexName, err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(r.cfg.IndexName).
		Prefix(r.cfg.KeyPrefix).
		Tag("city").
		Tag("property_type").
		Numeric("price").
		Numeric("bedrooms").
		VectorHNSW("vector", r.cfg.Dimensions, db.DistanceCosine, 16, 200).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", r.cfg.IndexName, err)
	}
	return nil
}
