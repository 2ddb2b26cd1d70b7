package db

// TagFilter restricts a search to documents whose TAG field holds the
// given value.
type TagFilter struct {
	Field string
	Value string
}

// NumericFilter restricts a search to documents whose NUMERIC field
// falls within [Min, Max]. Nil bounds are open.
type NumericFilter struct {
	Field string
	Min   *float64
	Max   *float64
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName      string
	TagFilters     []TagFilter
	NumericFilters []NumericFilter
	Vector         []float32
	K              int
	ReturnFields   []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
