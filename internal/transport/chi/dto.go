package chi

import (
	"time"

	"github.com/tytac116/PropMatch/internal/domain"
	domusage "github.com/tytac116/PropMatch/internal/domain/usage"
	healthuc "github.com/tytac116/PropMatch/internal/usecase/health"
	searchuc "github.com/tytac116/PropMatch/internal/usecase/search"
)

// ErrorCode identifies an API error category.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeNotFound               ErrorCode = "not_found"
	CodeListingNotFound        ErrorCode = "listing_not_found"
	CodeInvalidQuery           ErrorCode = "invalid_query"
	CodeRateLimited            ErrorCode = "rate_limited"
	CodeBudgetExhausted        ErrorCode = "budget_exhausted"
	CodeRetrievalUnavailable   ErrorCode = "retrieval_unavailable"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeLLMProviderError       ErrorCode = "llm_provider_error"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the POST /api/v1/search body. Zero limit and page
// fall back to the configured defaults; the upper bound here is a
// sanity cap, the service clamps to its configured page size.
type SearchRequest struct {
	Query   string `json:"query" validate:"max=1000"`
	Limit   int    `json:"limit" validate:"omitempty,min=1,max=200"`
	Page    int    `json:"page" validate:"omitempty,min=1"`
	Explain bool   `json:"explain"`
}

// Location is the listing address block.
type Location struct {
	Street       string `json:"street,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
}

// PointOfInterest is a nearby amenity.
type PointOfInterest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Distance string `json:"distance"`
}

// ListingView is the API rendering of a property record.
type ListingView struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Price        float64           `json:"price"`
	Currency     string            `json:"currency"`
	PropertyType string            `json:"property_type"`
	Bedrooms     int               `json:"bedrooms"`
	Bathrooms    float64           `json:"bathrooms"`
	AreaSqm      float64           `json:"area_sqm,omitempty"`
	Status       string            `json:"status"`
	Location     Location          `json:"location"`
	Features     []string          `json:"features,omitempty"`
	POIs         []PointOfInterest `json:"points_of_interest,omitempty"`
	Images       []string          `json:"images,omitempty"`
}

// SearchResult is one ranked listing with its score breakdown and the
// optional LLM explanation.
type SearchResult struct {
	Listing     ListingView           `json:"listing"`
	Score       float64               `json:"score"`
	Breakdown   domain.ScoreBreakdown `json:"scoring_breakdown"`
	Explanation *domain.Explanation   `json:"explanation,omitempty"`
}

// SearchResponse is one ranked result page.
type SearchResponse struct {
	SearchID    string         `json:"search_id"`
	Query       string         `json:"query"`
	Results     []SearchResult `json:"results"`
	Total       int            `json:"total"`
	Page        int            `json:"page"`
	PageSize    int            `json:"page_size"`
	TotalPages  int            `json:"total_pages"`
	HasNext     bool           `json:"has_next"`
	HasPrevious bool           `json:"has_previous"`
	Degraded    bool           `json:"degraded"`
}

// InvalidateResponse reports how many cached explanations a DELETE
// removed.
type InvalidateResponse struct {
	Deleted int `json:"deleted"`
}

// UsageMetrics is the token spend in a period.
type UsageMetrics struct {
	Tokens int64 `json:"tokens"`
}

// BudgetStatus is the budget state for a period.
type BudgetStatus struct {
	TokensLimit     int64      `json:"tokens_limit"`
	TokensRemaining int64      `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

// UsageResponse is the GET /api/v1/usage body.
type UsageResponse struct {
	Period        string       `json:"period"`
	PeriodStartAt *time.Time   `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time   `json:"period_end_at,omitempty"`
	Usage         UsageMetrics `json:"usage"`
	Budget        BudgetStatus `json:"budget"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func listingToView(l *domain.Listing) ListingView {
	pois := make([]PointOfInterest, len(l.POIs))
	for i, p := range l.POIs {
		pois[i] = PointOfInterest{Name: p.Name, Category: p.Category, Distance: p.Distance}
	}

	return ListingView{
		ID:           l.ID,
		Title:        l.Title,
		Description:  l.Description,
		Price:        l.Price,
		Currency:     "ZAR",
		PropertyType: string(l.PropertyType),
		Bedrooms:     l.Bedrooms,
		Bathrooms:    l.Bathrooms,
		AreaSqm:      l.AreaSqm,
		Status:       string(l.Status),
		Location: Location{
			Street:       l.Street,
			Neighborhood: l.Neighborhood,
			City:         l.City,
		},
		Features: l.Features,
		POIs:     pois,
		Images:   l.Images,
	}
}

func searchResponseToView(resp *searchuc.Response) SearchResponse {
	results := make([]SearchResult, len(resp.Results))
	for i, c := range resp.Results {
		results[i] = SearchResult{
			Listing:     listingToView(c.Listing),
			Score:       c.Score,
			Breakdown:   c.Breakdown,
			Explanation: c.Explanation,
		}
	}

	return SearchResponse{
		SearchID:    resp.SearchID,
		Query:       resp.Query,
		Results:     results,
		Total:       resp.Total,
		Page:        resp.Page,
		PageSize:    resp.PageSize,
		TotalPages:  resp.TotalPages,
		HasNext:     resp.HasNext,
		HasPrevious: resp.HasPrevious,
		Degraded:    resp.Degraded,
	}
}

func usageReportToView(report domusage.Report) UsageResponse {
	budget := report.Budget()
	resp := UsageResponse{
		Period: string(report.Period()),
		Usage:  UsageMetrics{Tokens: report.Tokens()},
		Budget: BudgetStatus{
			TokensLimit:     budget.TokensLimit(),
			TokensRemaining: budget.TokensRemaining(),
			IsExhausted:     budget.IsExhausted(),
		},
	}

	if report.PeriodStart() > 0 {
		start := time.UnixMilli(report.PeriodStart()).UTC()
		end := time.UnixMilli(report.PeriodEnd()).UTC()
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}
	if budget.ResetsAt() > 0 {
		resetsAt := time.UnixMilli(budget.ResetsAt()).UTC()
		resp.Budget.ResetsAt = &resetsAt
	}

	return resp
}

func healthReportToView(report healthuc.Report) HealthResponse {
	checks := make(map[string]string, len(report.Checks))
	for name, result := range report.Checks {
		checks[name] = string(result)
	}
	return HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	}
}
