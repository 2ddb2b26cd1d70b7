package search

import (
	"math"
	"strings"

	"github.com/tytac116/PropMatch/internal/domain"
)

// BM25 parameters (standard Robertson defaults).
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Boosts applied to raw BM25 before batch normalization. Matching
// every query term multiplies; an exact phrase hit adds a fixed amount
// in raw BM25 units.
const (
	fullCoverageBoost = 1.25
	phraseHitBonus    = 2.0
)

// LexicalScorer computes BM25 relevance of listings against a query.
// Raw scores are normalized against the best candidate in the batch to
// a bounded [0,100] contribution.
type LexicalScorer struct {
	corpus *Corpus
}

// NewLexicalScorer creates a scorer over the given corpus.
func NewLexicalScorer(c *Corpus) *LexicalScorer {
	return &LexicalScorer{corpus: c}
}

// Score returns the lexical contribution per listing ID. Deterministic
// for a fixed corpus and query. An empty or all-stopword query scores
// every listing zero.
func (s *LexicalScorer) Score(query string, listings []*domain.Listing) map[string]float64 {
	out := make(map[string]float64, len(listings))
	for _, l := range listings {
		out[l.ID] = 0
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return out
	}
	phrase := " " + cleanText(query) + " "

	v := s.corpus.snapshot()

	raw := make(map[string]float64, len(listings))
	best := 0.0
	for _, l := range listings {
		doc := v.docs[l.ID]
		if doc == nil {
			// Listing newer than the corpus snapshot.
			doc = buildDoc(l)
		}

		score := bm25Score(v, doc, terms)
		if score > 0 && len(terms) > 1 {
			if matchesAll(doc, terms) {
				score *= fullCoverageBoost
			}
			if strings.Contains(" "+doc.text+" ", phrase) {
				score += phraseHitBonus
			}
		}

		raw[l.ID] = score
		if score > best {
			best = score
		}
	}

	if best > 0 {
		for id, r := range raw {
			out[id] = r / best * 100
		}
	}
	return out
}

// bm25Score sums idf-weighted, saturated term frequencies with length
// normalization against the corpus average.
func bm25Score(v *corpusView, doc *corpusDoc, terms []string) float64 {
	if doc.length == 0 || v.docCount == 0 {
		return 0
	}

	avg := v.avgLen
	if avg <= 0 {
		avg = float64(doc.length)
	}
	norm := bm25K1 * (1 - bm25B + bm25B*float64(doc.length)/avg)
	n := float64(v.docCount)

	var score float64
	for _, t := range terms {
		tf := float64(doc.terms[t])
		if tf == 0 {
			continue
		}
		df := float64(v.df[t])
		idf := math.Log((n-df+0.5)/(df+0.5) + 1)
		score += idf * tf * (bm25K1 + 1) / (tf + norm)
	}
	return score
}

func matchesAll(doc *corpusDoc, terms []string) bool {
	for _, t := range terms {
		if doc.terms[t] == 0 {
			return false
		}
	}
	return true
}
