package search

import (
	"hash/fnv"
	"math"
	"sort"

	"github.com/tytac116/PropMatch/internal/domain"
)

// CandidateInput carries one listing's raw scoring signals into the
// combiner. Similarity is the vector-index cosine similarity in [0,1];
// Lexical is the normalized BM25 contribution in [0,100].
type CandidateInput struct {
	Listing    *domain.Listing
	Similarity float64
	Lexical    float64
	Metadata   MetadataResult
}

// Combiner merges vector similarity, lexical contribution and metadata
// adjustments into the final bounded score. It never fails: with no
// extractable constraints the ranking is pure vector+lexical.
type Combiner struct {
	weights domain.ScoringWeights
}

// NewCombiner creates a combiner with the given weight set.
func NewCombiner(w domain.ScoringWeights) *Combiner {
	return &Combiner{weights: w}
}

// Combine scores every candidate and returns them ranked descending.
// Final scores are clamped to [0,100], carry one decimal place, and
// are pairwise distinct within the returned set.
func (c *Combiner) Combine(inputs []CandidateInput) []domain.ScoredCandidate {
	out := make([]domain.ScoredCandidate, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, c.score(in))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Listing.ID < out[j].Listing.ID
	})
	Disperse(out)

	return out
}

func (c *Combiner) score(in CandidateInput) domain.ScoredCandidate {
	w := c.weights

	vector := w.VectorWeight * clamp(in.Similarity, 0, 1) * 100
	lexical := w.LexicalWeight * clamp(in.Lexical, 0, 100)
	adjusted := clamp(vector+lexical+in.Metadata.Bonus, 0, 100)

	// Deterministic fractional tie-breaker: repeated identical queries
	// must rank identically, so no wall-clock randomness.
	if p := perturbation(in.Listing.ID); p < adjusted {
		adjusted -= p
	}
	score := round1(adjusted)

	return domain.ScoredCandidate{
		Listing: in.Listing,
		Score:   score,
		Breakdown: domain.ScoreBreakdown{
			VectorContribution:  round1(vector),
			LexicalContribution: round1(lexical),
			MetadataBonus:       round1(in.Metadata.Bonus),
			Final:               score,
		},
	}
}

// perturbation maps a listing ID to a stable fraction of a point in
// [0, 0.9] via FNV-1a.
func perturbation(id string) float64 {
	h := fnv.New32a()
	h.Write([]byte(id))
	return float64(h.Sum32()%10) / 10
}

// Disperse makes scores pairwise distinct, working in integer tenths.
// A collision is pushed down to the nearest free tenth; when the floor
// at zero is reached it bounces back up to the nearest free tenth
// above. Candidates already sorted descending keep their order.
func Disperse(cands []domain.ScoredCandidate) {
	taken := make(map[int]struct{}, len(cands))
	for i := range cands {
		t := tenths(cands[i].Score)
		if _, collision := taken[t]; collision {
			for t > 0 {
				t--
				if _, ok := taken[t]; !ok {
					break
				}
			}
			if _, floor := taken[t]; floor {
				for {
					t++
					if _, ok := taken[t]; !ok {
						break
					}
				}
			}
		}
		taken[t] = struct{}{}
		cands[i].Score = float64(t) / 10
		cands[i].Breakdown.Final = cands[i].Score
	}
}

func tenths(score float64) int {
	t := int(math.Round(score * 10))
	if t < 0 {
		return 0
	}
	if t > 1000 {
		return 1000
	}
	return t
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
