package propmatch

import "time"

// SearchRequest is the body of a search call. Zero Limit and Page fall
// back to the server defaults. Explain runs the LLM re-rank pass on
// the returned page.
type SearchRequest struct {
	Query   string `json:"query"`
	Limit   int    `json:"limit,omitempty"`
	Page    int    `json:"page,omitempty"`
	Explain bool   `json:"explain,omitempty"`
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

// Listing is a property record as served by the API.
type Listing struct {
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

// ScoreBreakdown records how a final score was assembled. All values
// are on the 0-100 scale.
type ScoreBreakdown struct {
	VectorContribution  float64 `json:"vector_contribution"`
	LexicalContribution float64 `json:"lexical_contribution"`
	MetadataBonus       float64 `json:"metadata_bonus"`
	AIScore             float64 `json:"ai_score,omitempty"`
	Final               float64 `json:"final"`
}

// ExplanationPoint is one claim about a listing with supporting detail.
type ExplanationPoint struct {
	Claim  string `json:"claim"`
	Detail string `json:"detail"`
}

// Explanation is the structured LLM justification for one
// (query, listing) pair. Fallback marks entries generated without the
// model.
type Explanation struct {
	ListingID      string             `json:"listing_id"`
	MatchScore     int                `json:"match_score"`
	PositivePoints []ExplanationPoint `json:"positive_points"`
	NegativePoints []ExplanationPoint `json:"negative_points"`
	Summary        string             `json:"summary"`
	Fallback       bool               `json:"fallback,omitempty"`
	CachedAt       time.Time          `json:"cached_at"`
}

// SearchResult is one ranked listing with its score breakdown and the
// optional explanation.
type SearchResult struct {
	Listing     Listing        `json:"listing"`
	Score       float64        `json:"score"`
	Breakdown   ScoreBreakdown `json:"scoring_breakdown"`
	Explanation *Explanation   `json:"explanation,omitempty"`
}

// SearchResponse is one ranked result page. Degraded reports that at
// least one explanation fell back to the hybrid-only score.
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

// StreamEventType enumerates explanation stream events.
type StreamEventType string

// Stream event types. A stream is either cached alone, or start then
// chunks then complete; error replaces complete when the model fails.
const (
	StreamEventStart    StreamEventType = "start"
	StreamEventChunk    StreamEventType = "chunk"
	StreamEventComplete StreamEventType = "complete"
	StreamEventCached   StreamEventType = "cached"
	StreamEventError    StreamEventType = "error"
)

// StreamEvent is one message on an explanation stream. Complete and
// Cached events carry the final structured Explanation.
type StreamEvent struct {
	Type        StreamEventType `json:"type"`
	ListingID   string          `json:"listing_id"`
	Text        string          `json:"text,omitempty"`
	Explanation *Explanation    `json:"explanation,omitempty"`
	Message     string          `json:"message,omitempty"`
}

// Period is the aggregation granularity for usage reports.
type Period string

// Usage report periods.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// UsageMetrics is the token spend in a period.
type UsageMetrics struct {
	Tokens int64 `json:"tokens"`
}

// BudgetStatus is the token budget state for a period. A negative
// TokensRemaining means no limit is configured.
type BudgetStatus struct {
	TokensLimit     int64      `json:"tokens_limit"`
	TokensRemaining int64      `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

// UsageReport is the token usage and budget state for one period.
type UsageReport struct {
	Period        Period       `json:"period"`
	PeriodStartAt *time.Time   `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time   `json:"period_end_at,omitempty"`
	Usage         UsageMetrics `json:"usage"`
	Budget        BudgetStatus `json:"budget"`
}

// HealthReport is the aggregated service health. Status is "ok",
// "degraded" (LLM down, search still works) or "error".
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type invalidateResponse struct {
	Deleted int `json:"deleted"`
}
