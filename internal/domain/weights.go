package domain

import "fmt"

// ScoringWeights is the explicit configuration of the hybrid score
// combiner. Every knob is independently tunable; the defaults are
// validated against the ranking scenarios in the test suite rather
// than carved in stone.
type ScoringWeights struct {
	// VectorWeight and LexicalWeight blend the two base contributions
	// (both on a 0-100 scale). Vector-dominant by default.
	VectorWeight  float64
	LexicalWeight float64

	// Metadata bonus magnitudes.
	BedroomBonus       float64
	TypeBonus          float64
	PriceBonusScale    float64
	LocationBonus      float64
	FeatureBonusPerTag float64

	// PriceTolerance is the fraction over a stated ceiling that is
	// tolerated before the mild over-budget penalty applies.
	PriceTolerance float64

	// AIWeight blends the LLM's refined score with the hybrid score
	// when re-ranking succeeds.
	AIWeight float64
}

// DefaultScoringWeights returns the tuned default weight set.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		VectorWeight:       0.75,
		LexicalWeight:      0.25,
		BedroomBonus:       10,
		TypeBonus:          6,
		PriceBonusScale:    8,
		LocationBonus:      6,
		FeatureBonusPerTag: 2.5,
		PriceTolerance:     0.20,
		AIWeight:           0.6,
	}
}

// Validate checks the weight set for internal consistency.
func (w ScoringWeights) Validate() error {
	if w.VectorWeight < 0 || w.LexicalWeight < 0 {
		return fmt.Errorf("blend weights must be non-negative, got vector=%v lexical=%v",
			w.VectorWeight, w.LexicalWeight)
	}
	if w.VectorWeight+w.LexicalWeight == 0 {
		return fmt.Errorf("vector_weight and lexical_weight must not both be zero")
	}
	if w.VectorWeight < w.LexicalWeight {
		return fmt.Errorf("vector_weight (%v) must dominate lexical_weight (%v)",
			w.VectorWeight, w.LexicalWeight)
	}
	if w.PriceTolerance < 0 || w.PriceTolerance > 1 {
		return fmt.Errorf("price_tolerance must be within [0,1], got %v", w.PriceTolerance)
	}
	if w.AIWeight < 0 || w.AIWeight > 1 {
		return fmt.Errorf("ai_weight must be within [0,1], got %v", w.AIWeight)
	}
	return nil
}
