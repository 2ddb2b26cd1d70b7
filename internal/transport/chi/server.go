// Package chi exposes the PropMatch HTTP API: hybrid search,
// explanations (plain and streamed), cache invalidation, usage
// reporting and the operational endpoints.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tytac116/PropMatch/internal/domain"
	domusage "github.com/tytac116/PropMatch/internal/domain/usage"
	explainuc "github.com/tytac116/PropMatch/internal/usecase/explain"
	healthuc "github.com/tytac116/PropMatch/internal/usecase/health"
	"github.com/tytac116/PropMatch/internal/usecase/llmusage"
	searchuc "github.com/tytac116/PropMatch/internal/usecase/search"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// ExplanationCache is the invalidation surface of the explanation
// cache. Both the Redis and the in-memory backend implement it.
type ExplanationCache interface {
	Invalidate(ctx context.Context, listingID string) (int, error)
	InvalidateAll(ctx context.Context) (int, error)
}

// Server hosts the HTTP handlers over the use case services.
type Server struct {
	search        *searchuc.Service
	explain       *explainuc.Service
	cache         ExplanationCache
	usage         *llmusage.Service
	health        *healthuc.Service
	validate      *validator.Validate
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	explain *explainuc.Service,
	cache ExplanationCache,
	usage *llmusage.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:   search,
		explain:  explain,
		cache:    cache,
		usage:    usage,
		health:   health,
		validate: validator.New(),
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		// Retrieval wraps embedding failures (rate limits included), so
		// it must match before the provider sentinels.
		sentinelHandler(domain.ErrRetrievalUnavailable, http.StatusServiceUnavailable, CodeRetrievalUnavailable),
		sentinelHandler(domain.ErrListingNotFound, http.StatusNotFound, CodeListingNotFound),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeInvalidQuery),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrBudgetExhausted, http.StatusPaymentRequired, CodeBudgetExhausted),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway, CodeLLMProviderError),
	}
	return s
}

// Mount registers every route on the router.
func (s *Server) Mount(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Route("/listings/{id}", func(r chi.Router) {
			r.Get("/explanation", s.GetExplanation)
			r.Get("/explanation/stream", s.StreamExplanation)
			r.Delete("/explanations", s.InvalidateListingExplanations)
		})
		r.Delete("/explanations", s.InvalidateAllExplanations)
		r.Get("/usage", s.GetUsage)
	})
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, validationMessage(err))
		return
	}

	resp, err := s.search.Search(r.Context(), domain.SearchQuery{
		Text:    req.Query,
		Limit:   req.Limit,
		Page:    req.Page,
		Explain: req.Explain,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponseToView(resp))
}

// GetExplanation handles GET /api/v1/listings/{id}/explanation.
func (s *Server) GetExplanation(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "query parameter is required")
		return
	}

	exp, err := s.explain.Explain(r.Context(), query, chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, exp)
}

// StreamExplanation handles GET /api/v1/listings/{id}/explanation/stream.
func (s *Server) StreamExplanation(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, CodeInternalError, "streaming unsupported")
		return
	}

	sw := newStreamWriter(w, flusher)
	err := s.explain.StreamExplanation(r.Context(), query, chi.URLParam(r, "id"), sw.Send)
	if err != nil {
		if !sw.started {
			// Nothing on the wire yet, a JSON error is still possible.
			s.handleDomainError(w, err)
			return
		}
		// Mid-stream the status is committed; the client sees the
		// connection close without the [DONE] marker.
		s.logger.Debug("Explanation stream aborted",
			zap.String("listing_id", chi.URLParam(r, "id")),
			zap.Error(err))
		return
	}

	sw.Done()
}

// InvalidateListingExplanations handles DELETE /api/v1/listings/{id}/explanations.
func (s *Server) InvalidateListingExplanations(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.cache.Invalidate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, InvalidateResponse{Deleted: deleted})
}

// InvalidateAllExplanations handles DELETE /api/v1/explanations.
func (s *Server) InvalidateAllExplanations(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.cache.InvalidateAll(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, InvalidateResponse{Deleted: deleted})
}

// GetUsage handles GET /api/v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period := domusage.PeriodMonth
	switch p := r.URL.Query().Get("period"); p {
	case "", string(domusage.PeriodMonth):
	case string(domusage.PeriodDay):
		period = domusage.PeriodDay
	case string(domusage.PeriodTotal):
		period = domusage.PeriodTotal
	default:
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			"period must be one of day, month, total")
		return
	}

	report := s.usage.GetReport(r.Context(), period)
	writeJSON(w, http.StatusOK, usageReportToView(report))
}

// HealthCheck handles GET /health. Degraded still answers 200: search
// keeps working when only the LLM provider is down.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthReportToView(report))
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// validationMessage renders the first field failure from a validator
// error without leaking struct internals.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("validation error: %s - %s", strings.ToLower(fe.Field()), fe.Tag())
	}
	return "validation error: invalid request"
}

// safeDomainMessage returns a sentinel error message for the client
// without exposing internals. Order mirrors the handler chain so the
// message always matches the code picked for a multi-sentinel chain.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrRetrievalUnavailable,
		domain.ErrListingNotFound,
		domain.ErrInvalidQuery,
		domain.ErrRateLimited,
		domain.ErrBudgetExhausted,
		domain.ErrEmbeddingProviderError,
		domain.ErrLLMProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
