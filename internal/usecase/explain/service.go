package explain

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tytac116/PropMatch/internal/domain"
	"github.com/tytac116/PropMatch/internal/metrics"
	"github.com/tytac116/PropMatch/internal/usecase/search"
)

const (
	defaultBatchSize = 12
	maxBatchSize     = 12
	defaultTimeout   = 25 * time.Second

	// Model scores at or below this are trusted outright instead of
	// blended, so impossible queries sink rather than being averaged
	// back up by the hybrid score.
	lowScoreTrust = 30.0
)

// Config bounds the explainer. Zero values fall back to defaults.
type Config struct {
	BatchSize int           // listings per chat call
	Timeout   time.Duration // per chat call
}

// Service is the LLM re-rank and explanation layer on top of hybrid
// search results.
type Service struct {
	chat     ChatProvider
	cache    Cache
	listings ListingReader
	budget   BudgetGuard
	weights  domain.ScoringWeights
	cfg      Config
	logger   *zap.Logger
}

var _ search.Reranker = (*Service)(nil)

// New creates the explanation service.
func New(
	chat ChatProvider,
	cache Cache,
	listings ListingReader,
	budget BudgetGuard,
	weights domain.ScoringWeights,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.BatchSize <= 0 || cfg.BatchSize > maxBatchSize {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Service{
		chat:     chat,
		cache:    cache,
		listings: listings,
		budget:   budget,
		weights:  weights,
		cfg:      cfg,
		logger:   logger,
	}
}

// Rerank runs the model scoring pass over one page of ranked
// candidates. It always returns a full result set: candidates the
// model could not score keep their hybrid score and carry a
// fallback-marked explanation. The bool reports whether any candidate
// fell back.
func (s *Service) Rerank(ctx context.Context, query string, cands []domain.ScoredCandidate) ([]domain.ScoredCandidate, bool) {
	if len(cands) == 0 {
		return cands, false
	}
	norm := domain.NormalizeQuery(query)
	now := time.Now().UTC()

	var misses []int
	for i := range cands {
		if exp, ok := s.cache.Get(ctx, norm, cands[i].Listing.ID); ok {
			s.apply(&cands[i], exp)
			continue
		}
		misses = append(misses, i)
	}

	fellBack := false
	if len(misses) > 0 {
		if err := s.budget.Check(ctx); err != nil {
			s.logger.Warn("Explanation budget exhausted, serving hybrid scores",
				zap.Int("candidates", len(misses)))
			s.fallbackAll(cands, misses, now)
			fellBack = true
		} else {
			fellBack = s.rerankMisses(ctx, norm, cands, misses, now)
		}
	}

	sortRanked(cands)
	search.Disperse(cands)

	status := "ok"
	if fellBack {
		status = "fallback"
	}
	metrics.ExplanationRequestsTotal.WithLabelValues("batch", status).Inc()
	return cands, fellBack
}

// Explain produces the explanation for one (query, listing) pair,
// serving from cache when fresh. The listing must exist; generation
// failures degrade to a fallback-marked explanation, not an error.
func (s *Service) Explain(ctx context.Context, query, listingID string) (*domain.Explanation, error) {
	norm := domain.NormalizeQuery(query)
	if exp, ok := s.cache.Get(ctx, norm, listingID); ok {
		metrics.ExplanationRequestsTotal.WithLabelValues("single", "ok").Inc()
		return exp, nil
	}
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		metrics.ExplanationRequestsTotal.WithLabelValues("single", "error").Inc()
		return nil, fmt.Errorf("load listing: %w", err)
	}
	now := time.Now().UTC()
	if err := s.budget.Check(ctx); err != nil {
		s.logger.Warn("Explanation budget exhausted", zap.String("listing_id", listingID))
		metrics.ExplanationRequestsTotal.WithLabelValues("single", "fallback").Inc()
		return s.fallbackExplanation(listingID, now), nil
	}

	msgs := []domain.ChatMessage{
		{Role: domain.ChatRoleSystem, Content: systemMessage},
		{Role: domain.ChatRoleUser, Content: singlePrompt(norm, listing)},
	}
	row, err := completeWithRetry(ctx, s, msgs, parseSingle)
	if err != nil {
		if ctx.Err() != nil {
			metrics.ExplanationRequestsTotal.WithLabelValues("single", "aborted").Inc()
			return nil, err
		}
		s.logger.Warn("Explanation generation failed",
			zap.String("listing_id", listingID), zap.Error(err))
		metrics.ExplanationRequestsTotal.WithLabelValues("single", "fallback").Inc()
		return s.fallbackExplanation(listingID, now), nil
	}
	exp := explanationFromRow(row, listingID, now)
	s.cache.Put(ctx, norm, listingID, exp)
	metrics.ExplanationRequestsTotal.WithLabelValues("single", "ok").Inc()
	return exp, nil
}

// StreamExplanation generates an explanation while streaming text
// deltas to emit. The event sequence is cached alone, or start then
// chunks then complete; on the fallback path an error event replaces
// complete. An emit error means the consumer is gone and aborts the
// stream.
func (s *Service) StreamExplanation(ctx context.Context, query, listingID string, emit func(domain.StreamEvent) error) error {
	norm := domain.NormalizeQuery(query)
	if exp, ok := s.cache.Get(ctx, norm, listingID); ok {
		metrics.ExplanationRequestsTotal.WithLabelValues("stream", "ok").Inc()
		return emit(domain.StreamEvent{Type: domain.StreamEventCached, ListingID: listingID, Explanation: exp})
	}
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		metrics.ExplanationRequestsTotal.WithLabelValues("stream", "error").Inc()
		return fmt.Errorf("load listing: %w", err)
	}
	now := time.Now().UTC()
	if err := s.budget.Check(ctx); err != nil {
		s.logger.Warn("Explanation budget exhausted", zap.String("listing_id", listingID))
		metrics.ExplanationFallbacksTotal.Inc()
		metrics.ExplanationRequestsTotal.WithLabelValues("stream", "fallback").Inc()
		return emit(domain.StreamEvent{Type: domain.StreamEventError, ListingID: listingID, Message: "explanation budget exhausted"})
	}

	if err := emit(domain.StreamEvent{Type: domain.StreamEventStart, ListingID: listingID}); err != nil {
		return err
	}
	msgs := []domain.ChatMessage{
		{Role: domain.ChatRoleSystem, Content: systemMessage},
		{Role: domain.ChatRoleUser, Content: singlePrompt(norm, listing)},
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	var emitErr error
	res, err := s.chat.StreamComplete(callCtx, msgs, func(delta string) error {
		if e := emit(domain.StreamEvent{Type: domain.StreamEventChunk, ListingID: listingID, Text: delta}); e != nil {
			emitErr = e
			return e
		}
		return nil
	})
	if res.TotalTokens > 0 {
		s.budget.Record(int64(res.TotalTokens))
	}
	if emitErr != nil {
		metrics.ExplanationRequestsTotal.WithLabelValues("stream", "aborted").Inc()
		return emitErr
	}

	var row rerankRow
	if err == nil {
		row, err = parseSingle(res.Content)
		if err != nil && ctx.Err() == nil {
			// The streamed text was unparseable. One non-streaming
			// retry; the complete event carries the authoritative
			// explanation either way.
			var retry domain.ChatResult
			retry, err = s.complete(ctx, retryMessages(msgs, res.Content))
			if err == nil {
				row, err = parseSingle(retry.Content)
			}
		}
	} else if ctx.Err() == nil {
		res, err = s.complete(ctx, msgs)
		if err == nil {
			row, err = parseSingle(res.Content)
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			metrics.ExplanationRequestsTotal.WithLabelValues("stream", "aborted").Inc()
			return err
		}
		s.logger.Warn("Streamed explanation failed",
			zap.String("listing_id", listingID), zap.Error(err))
		metrics.ExplanationFallbacksTotal.Inc()
		metrics.ExplanationRequestsTotal.WithLabelValues("stream", "fallback").Inc()
		return emit(domain.StreamEvent{Type: domain.StreamEventError, ListingID: listingID, Message: "explanation unavailable"})
	}

	exp := explanationFromRow(row, listingID, now)
	s.cache.Put(ctx, norm, listingID, exp)
	metrics.ExplanationRequestsTotal.WithLabelValues("stream", "ok").Inc()
	return emit(domain.StreamEvent{Type: domain.StreamEventComplete, ListingID: listingID, Explanation: exp})
}

// rerankMisses scores cache misses in batches. Reports whether any
// candidate fell back.
func (s *Service) rerankMisses(ctx context.Context, norm string, cands []domain.ScoredCandidate, misses []int, now time.Time) bool {
	fellBack := false
	for start := 0; start < len(misses); start += s.cfg.BatchSize {
		if ctx.Err() != nil {
			s.fallbackAll(cands, misses[start:], now)
			return true
		}
		end := start + s.cfg.BatchSize
		if end > len(misses) {
			end = len(misses)
		}
		if s.rerankBatch(ctx, norm, cands, misses[start:end], now) {
			fellBack = true
		}
	}
	return fellBack
}

func (s *Service) rerankBatch(ctx context.Context, norm string, cands []domain.ScoredCandidate, batch []int, now time.Time) (fellBack bool) {
	subset := make([]domain.ScoredCandidate, len(batch))
	for j, i := range batch {
		subset[j] = cands[i]
	}
	msgs := []domain.ChatMessage{
		{Role: domain.ChatRoleSystem, Content: systemMessage},
		{Role: domain.ChatRoleUser, Content: batchPrompt(norm, subset)},
	}
	rows, err := completeWithRetry(ctx, s, msgs, parseBatch)
	if err != nil {
		s.logger.Warn("Rerank batch failed, serving hybrid scores",
			zap.Int("candidates", len(batch)), zap.Error(err))
		s.fallbackAll(cands, batch, now)
		return true
	}
	byID := make(map[string]rerankRow, len(rows))
	for _, r := range rows {
		byID[string(r.ID)] = r
	}
	for _, i := range batch {
		row, ok := byID[cands[i].Listing.ID]
		if !ok {
			s.logger.Debug("Model reply missing listing", zap.String("listing_id", cands[i].Listing.ID))
			s.fallback(&cands[i], now)
			fellBack = true
			continue
		}
		exp := explanationFromRow(row, cands[i].Listing.ID, now)
		s.cache.Put(ctx, norm, cands[i].Listing.ID, exp)
		s.apply(&cands[i], exp)
	}
	return fellBack
}

// completeWithRetry runs one chat call and parses the reply, retrying
// once. A malformed reply retries with a clarifying re-prompt; a
// transport error retries the original conversation. A dead caller
// context never retries.
func completeWithRetry[T any](ctx context.Context, s *Service, msgs []domain.ChatMessage, parse func(string) (T, error)) (T, error) {
	var zero T
	res, err := s.complete(ctx, msgs)
	if err == nil {
		out, perr := parse(res.Content)
		if perr == nil {
			return out, nil
		}
		res, err = s.complete(ctx, retryMessages(msgs, res.Content))
	} else if ctx.Err() == nil {
		res, err = s.complete(ctx, msgs)
	}
	if err != nil {
		return zero, err
	}
	return parse(res.Content)
}

// complete runs one chat call under the per-call timeout and books its
// token usage.
func (s *Service) complete(ctx context.Context, msgs []domain.ChatMessage) (domain.ChatResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	res, err := s.chat.Complete(callCtx, msgs)
	if res.TotalTokens > 0 {
		s.budget.Record(int64(res.TotalTokens))
	}
	return res, err
}

// apply attaches an explanation and blends its score into the hybrid
// one.
func (s *Service) apply(c *domain.ScoredCandidate, exp *domain.Explanation) {
	c.Explanation = exp
	ai := float64(exp.MatchScore)
	c.Breakdown.AIScore = ai
	if ai <= lowScoreTrust {
		c.Score = ai
	} else {
		c.Score = s.weights.AIWeight*ai + (1-s.weights.AIWeight)*c.Score
	}
	c.Score = clampScore(c.Score)
	c.Breakdown.Final = c.Score
}

func (s *Service) fallbackAll(cands []domain.ScoredCandidate, idx []int, now time.Time) {
	for _, i := range idx {
		s.fallback(&cands[i], now)
	}
}

// fallback keeps the hybrid score and attaches an empty marker
// explanation. Fallback entries are never cached.
func (s *Service) fallback(c *domain.ScoredCandidate, now time.Time) {
	c.Explanation = &domain.Explanation{
		ListingID:  c.Listing.ID,
		MatchScore: int(math.Round(c.Score)),
		Fallback:   true,
		CachedAt:   now,
	}
	metrics.ExplanationFallbacksTotal.Inc()
}

// fallbackExplanation is the degraded standalone result. MatchScore
// stays zero: there is no hybrid score to fall back on outside a
// search.
func (s *Service) fallbackExplanation(listingID string, now time.Time) *domain.Explanation {
	metrics.ExplanationFallbacksTotal.Inc()
	return &domain.Explanation{ListingID: listingID, Fallback: true, CachedAt: now}
}

// sortRanked restores descending order after blending. Ties break on
// listing ID so repeated queries paginate identically.
func sortRanked(cands []domain.ScoredCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].Listing.ID < cands[j].Listing.ID
	})
}
