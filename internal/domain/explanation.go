package domain

import "time"

// ExplanationPoint is one claim about a listing with supporting detail.
type ExplanationPoint struct {
	Claim  string `json:"claim"`
	Detail string `json:"detail"`
}

// Explanation is the structured result of the LLM pass for one
// (query, listing) pair. Keyed in the cache by the normalized query
// text plus the listing identifier.
type Explanation struct {
	ListingID      string             `json:"listing_id"`
	MatchScore     int                `json:"match_score"`
	PositivePoints []ExplanationPoint `json:"positive_points"`
	NegativePoints []ExplanationPoint `json:"negative_points"`
	Summary        string             `json:"summary"`
	Fallback       bool               `json:"fallback,omitempty"`
	CachedAt       time.Time          `json:"cached_at"`
}

// ExplanationState tracks an explanation request through its lifecycle.
type ExplanationState string

// Explanation request states. Terminal states are StateDone (success
// with explanation) and StateFallback (hybrid-only score, no
// explanation).
const (
	StatePending   ExplanationState = "pending"
	StateCacheHit  ExplanationState = "cache_hit"
	StateStreaming ExplanationState = "streaming"
	StateComplete  ExplanationState = "complete"
	StateError     ExplanationState = "error"
	StateFallback  ExplanationState = "fallback"
	StateDone      ExplanationState = "done"
)

// StreamEventType enumerates the events emitted on an explanation
// stream.
type StreamEventType string

// Stream event types. A stream is either cached → done, or
// start → chunk×n → complete → done; error replaces complete on the
// fallback path.
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
