package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tytac116/PropMatch/internal/domain"
	"github.com/tytac116/PropMatch/internal/metrics"
)

// Config bounds result paging.
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Response is one ranked result page plus its pagination echo.
type Response struct {
	SearchID    string
	Query       string
	Results     []domain.ScoredCandidate
	Total       int
	Page        int
	PageSize    int
	TotalPages  int
	HasNext     bool
	HasPrevious bool
	Degraded    bool
}

// Service runs the hybrid ranking pipeline: vector retrieval, batched
// listing load, concurrent lexical and metadata scoring, hybrid
// combination, and the optional LLM re-rank pass on the returned page.
type Service struct {
	retriever Retriever
	listings  ListingReader
	corpus    *Corpus
	lexical   *LexicalScorer
	metadata  *MetadataMatcher
	combiner  *Combiner
	reranker  Reranker
	warmer    Warmer
	cfg       Config
	logger    *zap.Logger
}

// New creates the search pipeline. The reranker is optional; without
// one, explain requests return hybrid-only results.
func New(
	retriever Retriever, listings ListingReader, corpus *Corpus,
	weights domain.ScoringWeights, reranker Reranker,
	cfg Config, logger *zap.Logger,
) *Service {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 12
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}

	return &Service{
		retriever: retriever,
		listings:  listings,
		corpus:    corpus,
		lexical:   NewLexicalScorer(corpus),
		metadata:  NewMetadataMatcher(corpus, weights, logger),
		combiner:  NewCombiner(weights),
		reranker:  reranker,
		cfg:       cfg,
		logger:    logger,
	}
}

// WithWarmer attaches a background explanation warmer for pages served
// without re-ranking.
func (s *Service) WithWarmer(w Warmer) *Service {
	s.warmer = w
	return s
}

// Search ranks listings for a free-text query. An empty query returns
// an empty page, never an error. Only retrieval-layer failures abort;
// everything downstream degrades.
func (s *Service) Search(ctx context.Context, q domain.SearchQuery) (*Response, error) {
	started := time.Now()

	text := strings.TrimSpace(q.Text)
	limit := s.pageSize(q.Limit)
	page := q.Page
	if page < 1 {
		page = 1
	}

	resp := &Response{
		SearchID: uuid.NewString(),
		Query:    text,
		Results:  []domain.ScoredCandidate{},
		Page:     page,
		PageSize: limit,
	}

	if text == "" {
		metrics.SearchRequestsTotal.WithLabelValues("empty").Inc()
		return resp, nil
	}

	candidates, err := s.retrieve(ctx, text, domain.CandidatePool(limit*page))
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("retrieve candidates: %w", err)
	}
	if len(candidates) == 0 {
		metrics.SearchRequestsTotal.WithLabelValues("success").Inc()
		s.logger.Info("Search returned no candidates",
			zap.String("search_id", resp.SearchID),
			zap.String("query", text))
		return resp, nil
	}

	listings, err := s.loadListings(ctx, candidates)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	lexScores, adjustments, err := s.scoreConcurrently(ctx, text, listings)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	ranked := s.combine(candidates, listings, lexScores, adjustments)

	s.paginate(resp, ranked, page, limit)

	if q.Explain && s.reranker != nil && len(resp.Results) > 0 {
		reranked, fellBack := s.reranker.Rerank(ctx, text, resp.Results)
		resp.Results = reranked
		resp.Degraded = fellBack
	} else if s.warmer != nil && len(resp.Results) > 0 {
		s.warmer.Warm(text, resp.Results)
	}

	metrics.SearchRequestsTotal.WithLabelValues("success").Inc()
	s.logger.Info("Search completed",
		zap.String("search_id", resp.SearchID),
		zap.String("query", text),
		zap.Int("candidates", len(listings)),
		zap.Int("returned", len(resp.Results)),
		zap.Bool("explain", q.Explain),
		zap.Bool("degraded", resp.Degraded),
		zap.Duration("took", time.Since(started)))

	return resp, nil
}

func (s *Service) retrieve(ctx context.Context, text string, pool int) ([]domain.RetrievedCandidate, error) {
	start := time.Now()
	candidates, err := s.retriever.Retrieve(ctx, text, pool)
	if err != nil {
		return nil, err
	}
	metrics.SearchStageDuration.WithLabelValues("retrieve").Observe(time.Since(start).Seconds())
	metrics.SearchCandidatePool.Observe(float64(len(candidates)))
	return candidates, nil
}

// loadListings batch-reads the candidate records. A store failure here
// aborts the search the same way a vector-index failure does.
func (s *Service) loadListings(ctx context.Context, candidates []domain.RetrievedCandidate) ([]*domain.Listing, error) {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ListingID)
	}

	listings, err := s.listings.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load listings: %w: %w", domain.ErrRetrievalUnavailable, err)
	}
	return listings, nil
}

// scoreConcurrently runs lexical scoring and metadata matching over
// the same candidate set in parallel and joins before combining.
func (s *Service) scoreConcurrently(
	ctx context.Context, text string, listings []*domain.Listing,
) (map[string]float64, map[string]MetadataResult, error) {
	var (
		lexScores   map[string]float64
		adjustments map[string]MetadataResult
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		lexScores = s.lexical.Score(text, listings)
		metrics.SearchStageDuration.WithLabelValues("lexical").Observe(time.Since(start).Seconds())
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		constraints := s.metadata.Parse(text)
		adjustments = make(map[string]MetadataResult, len(listings))
		for _, l := range listings {
			adjustments[l.ID] = s.metadata.Adjust(constraints, l)
		}
		metrics.SearchStageDuration.WithLabelValues("metadata").Observe(time.Since(start).Seconds())
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return lexScores, adjustments, nil
}

func (s *Service) combine(
	candidates []domain.RetrievedCandidate, listings []*domain.Listing,
	lexScores map[string]float64, adjustments map[string]MetadataResult,
) []domain.ScoredCandidate {
	byID := make(map[string]*domain.Listing, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
	}

	start := time.Now()
	inputs := make([]CandidateInput, 0, len(candidates))
	for _, c := range candidates {
		l := byID[c.ListingID]
		if l == nil {
			// Stale index entry; the record is gone from the store.
			s.logger.Debug("Vector hit without listing record",
				zap.String("listing_id", c.ListingID))
			continue
		}
		inputs = append(inputs, CandidateInput{
			Listing:    l,
			Similarity: c.Similarity,
			Lexical:    lexScores[l.ID],
			Metadata:   adjustments[l.ID],
		})
	}

	ranked := s.combiner.Combine(inputs)
	metrics.SearchStageDuration.WithLabelValues("combine").Observe(time.Since(start).Seconds())
	return ranked
}

func (s *Service) paginate(resp *Response, ranked []domain.ScoredCandidate, page, limit int) {
	resp.Total = len(ranked)
	resp.TotalPages = (resp.Total + limit - 1) / limit

	start := (page - 1) * limit
	if start < resp.Total {
		resp.Results = ranked[start:min(start+limit, resp.Total)]
	}
	resp.HasNext = page < resp.TotalPages
	resp.HasPrevious = page > 1
}

func (s *Service) pageSize(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		return s.cfg.MaxPageSize
	}
	return limit
}
