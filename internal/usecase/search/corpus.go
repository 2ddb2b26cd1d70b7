package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tytac116/PropMatch/internal/domain"
)

// CorpusSource is the listing store view the corpus builds from.
type CorpusSource interface {
	All(ctx context.Context) ([]*domain.Listing, error)
}

// corpusDoc is the per-listing lexical view built at corpus load.
type corpusDoc struct {
	terms  map[string]int
	length int
	text   string
}

// corpusView is an immutable snapshot of the corpus statistics.
// Replaced wholesale on rebuild, never mutated in place.
type corpusView struct {
	docs      map[string]*corpusDoc
	df        map[string]int
	docCount  int
	avgLen    float64
	locations map[string]struct{}
}

// Corpus holds the BM25 statistics and the location gazetteer for the
// listing inventory. Readers take a snapshot; Rebuild swaps the whole
// view atomically so a half-built corpus is never observable.
type Corpus struct {
	mu     sync.RWMutex
	view   *corpusView
	logger *zap.Logger
}

// NewCorpus creates an empty corpus. Rebuild before first use; an
// empty corpus scores every document zero.
func NewCorpus(logger *zap.Logger) *Corpus {
	return &Corpus{view: emptyCorpusView(), logger: logger}
}

func emptyCorpusView() *corpusView {
	return &corpusView{
		docs:      make(map[string]*corpusDoc),
		df:        make(map[string]int),
		locations: make(map[string]struct{}),
	}
}

// Rebuild loads the full listing inventory and recomputes document
// frequencies, average document length and the location gazetteer.
func (c *Corpus) Rebuild(ctx context.Context, src CorpusSource) error {
	start := time.Now()

	listings, err := src.All(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	v := emptyCorpusView()
	totalLen := 0
	for _, l := range listings {
		doc := buildDoc(l)
		v.docs[l.ID] = doc
		totalLen += doc.length
		for term := range doc.terms {
			v.df[term]++
		}
		addLocation(v.locations, l.Neighborhood)
		addLocation(v.locations, l.City)
	}
	v.docCount = len(v.docs)
	if v.docCount > 0 {
		v.avgLen = float64(totalLen) / float64(v.docCount)
	}

	c.mu.Lock()
	c.view = v
	c.mu.Unlock()

	c.logger.Info("Lexical corpus rebuilt",
		zap.Int("listings", v.docCount),
		zap.Int("terms", len(v.df)),
		zap.Int("locations", len(v.locations)),
		zap.Duration("took", time.Since(start)))

	return nil
}

// Size returns the number of listings in the current view.
func (c *Corpus) Size() int {
	return c.snapshot().docCount
}

// MatchLocations returns the gazetteer entries present in the query
// text as whole words, sorted for determinism.
func (c *Corpus) MatchLocations(query string) []string {
	v := c.snapshot()
	padded := " " + cleanText(query) + " "

	var out []string
	for loc := range v.locations {
		if strings.Contains(padded, " "+loc+" ") {
			out = append(out, loc)
		}
	}
	sort.Strings(out)
	return out
}

func (c *Corpus) snapshot() *corpusView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

func buildDoc(l *domain.Listing) *corpusDoc {
	raw := l.SearchText()
	terms := tokenize(raw)

	doc := &corpusDoc{
		terms:  make(map[string]int, len(terms)),
		length: len(terms),
		text:   cleanText(raw),
	}
	for _, t := range terms {
		doc.terms[t]++
	}
	return doc
}

func addLocation(set map[string]struct{}, name string) {
	loc := cleanText(name)
	if loc != "" {
		set[loc] = struct{}{}
	}
}
