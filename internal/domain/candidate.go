package domain

// RetrievedCandidate is a raw vector-index hit: a listing identifier
// plus its cosine-style similarity in [0,1], prior to hybrid scoring.
type RetrievedCandidate struct {
	ListingID  string
	Similarity float64
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

// ScoredCandidate pairs a listing with its bounded hybrid score.
// Score is always within [0,100] with one decimal place; within one
// result set all scores are pairwise distinct.
type ScoredCandidate struct {
	Listing     *Listing
	Score       float64
	Breakdown   ScoreBreakdown
	Explanation *Explanation
}
