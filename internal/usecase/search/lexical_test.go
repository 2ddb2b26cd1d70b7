package search

import (
	"context"
	"reflect"
	"testing"

	"github.com/tytac116/PropMatch/internal/domain"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Three-Bedroom House, Claremont!", "three bedroom house claremont"},
		{"  R2 500 000  ", "r2 500 000"},
		{"", ""},
		{"...", ""},
	}
	for _, tt := range tests {
		if got := cleanText(tt.in); got != tt.want {
			t.Errorf("cleanText(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"3 bedroom house with a garden", []string{"3", "bedroom", "house", "garden"}},
		{"Looking for THE pool!", []string{"pool"}},
		{"x y z", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := tokenize(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("tokenize(%q) = %v, expected %v", tt.in, got, tt.want)
		}
	}
}

func TestLexicalScorer_RewardsTermMatches(t *testing.T) {
	listings := testListings()
	scorer := NewLexicalScorer(buildCorpus(t, newMockListingReader(listings)))

	scores := scorer.Score("3 bedroom house with garden", listings)

	if scores["prop_001"] <= scores["prop_003"] {
		t.Errorf("expected the 3-bed house (%0.1f) to outscore the studio (%0.1f)",
			scores["prop_001"], scores["prop_003"])
	}
	if scores["prop_001"] <= scores["prop_004"] {
		t.Errorf("expected the 3-bed house (%0.1f) to outscore the villa (%0.1f)",
			scores["prop_001"], scores["prop_004"])
	}
}

func TestLexicalScorer_BestOfBatchIsFull(t *testing.T) {
	listings := testListings()
	scorer := NewLexicalScorer(buildCorpus(t, newMockListingReader(listings)))

	scores := scorer.Score("sea point apartment", listings)

	best := 0.0
	for _, s := range scores {
		if s < 0 || s > 100 {
			t.Fatalf("score out of bounds: %v", s)
		}
		if s > best {
			best = s
		}
	}
	if best != 100 {
		t.Errorf("expected the best candidate to normalize to 100, got %v", best)
	}
}

func TestLexicalScorer_EmptyQueryScoresZero(t *testing.T) {
	listings := testListings()
	scorer := NewLexicalScorer(buildCorpus(t, newMockListingReader(listings)))

	for _, query := range []string{"", "the with a", "   "} {
		for id, s := range scorer.Score(query, listings) {
			if s != 0 {
				t.Errorf("query %q: expected zero for %s, got %v", query, id, s)
			}
		}
	}
}

func TestLexicalScorer_NoMatchesScoreZero(t *testing.T) {
	listings := testListings()
	scorer := NewLexicalScorer(buildCorpus(t, newMockListingReader(listings)))

	for id, s := range scorer.Score("underwater dragons", listings) {
		if s != 0 {
			t.Errorf("expected zero for %s, got %v", id, s)
		}
	}
}

func TestLexicalScorer_Deterministic(t *testing.T) {
	listings := testListings()
	scorer := NewLexicalScorer(buildCorpus(t, newMockListingReader(listings)))

	first := scorer.Score("3 bedroom house with garden", listings)
	second := scorer.Score("3 bedroom house with garden", listings)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("scores differ across runs:\n%v\n%v", first, second)
	}
}

func TestLexicalScorer_ListingOutsideCorpusStillScored(t *testing.T) {
	corpus := buildCorpus(t, newMockListingReader(testListings()))
	scorer := NewLexicalScorer(corpus)

	fresh := &domain.Listing{
		ID:           "prop_new",
		Title:        "Brand New House in Claremont",
		Description:  "Three bedroom house with garden.",
		Bedrooms:     3,
		PropertyType: domain.TypeHouse,
		Price:        2_900_000,
		Neighborhood: "Claremont",
		City:         "Cape Town",
		Features:     []string{"Garden"},
	}

	scores := scorer.Score("house with garden", []*domain.Listing{fresh})
	if scores["prop_new"] <= 0 {
		t.Errorf("expected a fresh listing to score on the fly, got %v", scores["prop_new"])
	}
}

func TestCorpus_MatchLocations(t *testing.T) {
	corpus := buildCorpus(t, newMockListingReader(testListings()))

	got := corpus.MatchLocations("apartment in Sea Point near the promenade")
	if len(got) != 1 || got[0] != "sea point" {
		t.Errorf("expected [sea point], got %v", got)
	}

	if got := corpus.MatchLocations("a disappointing view"); len(got) != 0 {
		t.Errorf("expected no match on partial words, got %v", got)
	}
}

func TestCorpus_RebuildReplacesView(t *testing.T) {
	store := newMockListingReader(testListings())
	corpus := buildCorpus(t, store)

	if corpus.Size() != len(testListings()) {
		t.Fatalf("expected %d docs, got %d", len(testListings()), corpus.Size())
	}

	smaller := newMockListingReader(testListings()[:2])
	if err := corpus.Rebuild(context.Background(), smaller); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if corpus.Size() != 2 {
		t.Errorf("expected 2 docs after rebuild, got %d", corpus.Size())
	}
}
