package explain

import (
	"context"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/tytac116/PropMatch/internal/domain"
)

const (
	defaultWarmPoolSize = 4
	defaultWarmTimeout  = 30 * time.Second
)

// Warmer precomputes explanations in the background so the first
// explanation request after a search is a cache hit.
type Warmer struct {
	svc     *Service
	pool    *ants.Pool
	timeout time.Duration
	logger  *zap.Logger
}

// NewWarmer creates a warmer backed by a fixed worker pool. The pool
// is nonblocking: when saturated, remaining listings are skipped
// rather than queued behind live traffic.
func NewWarmer(svc *Service, size int, logger *zap.Logger) (*Warmer, error) {
	if size <= 0 {
		size = defaultWarmPoolSize
	}
	pool, err := ants.NewPool(size, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create warm pool: %w", err)
	}
	return &Warmer{svc: svc, pool: pool, timeout: defaultWarmTimeout, logger: logger}, nil
}

// Warm schedules explanation generation for the given candidates. Fire
// and forget; nothing is warmed while the token budget is exhausted.
func (w *Warmer) Warm(query string, cands []domain.ScoredCandidate) {
	if len(cands) == 0 {
		return
	}
	if err := w.svc.budget.Check(context.Background()); err != nil {
		return
	}
	for i := range cands {
		id := cands[i].Listing.ID
		err := w.pool.Submit(func() {
			ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
			defer cancel()
			if _, err := w.svc.Explain(ctx, query, id); err != nil {
				w.logger.Debug("Cache warm failed", zap.String("listing_id", id), zap.Error(err))
			}
		})
		if err != nil {
			w.logger.Debug("Warm pool saturated",
				zap.Int("skipped", len(cands)-i), zap.Error(err))
			return
		}
	}
}

// Close releases the worker pool. Queued warms finish; skipped ones
// are never retried.
func (w *Warmer) Close() {
	w.pool.Release()
}
