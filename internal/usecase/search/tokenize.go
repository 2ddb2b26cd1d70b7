package search

import "strings"

// stopwords are dropped from both queries and documents before BM25
// scoring. Kept small: over-eager filtering hurts short property
// queries more than it helps.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "but": {}, "by": {}, "for": {}, "from": {}, "has": {},
	"have": {}, "i": {}, "in": {}, "is": {}, "it": {}, "its": {},
	"my": {}, "of": {}, "on": {}, "or": {}, "that": {}, "the": {},
	"this": {}, "to": {}, "was": {}, "we": {}, "will": {}, "with": {},
	"looking": {}, "want": {}, "need": {}, "please": {}, "me": {},
	"show": {}, "find": {},
}

// cleanText lowercases, replaces punctuation with spaces and collapses
// whitespace. Phrase matching runs on cleaned text so punctuation
// never breaks a phrase hit.
func cleanText(text string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, text)
	return strings.Join(strings.Fields(mapped), " ")
}

// tokenize splits text into lexical terms: cleaned, stopword-filtered,
// single letters dropped (single digits survive, bedroom counts
// matter).
func tokenize(text string) []string {
	fields := strings.Fields(cleanText(text))
	terms := fields[:0]
	for _, f := range fields {
		if _, stop := stopwords[f]; stop {
			continue
		}
		if len(f) == 1 && (f[0] < '0' || f[0] > '9') {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}
