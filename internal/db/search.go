package db

import "github.com/kailas-cloud/geofeed/internal/db/filter"

// KNNQuery is the input for a nearest-neighbor search over a vector field.
type KNNQuery struct {
	IndexName    string
	VectorField  string // alias of the vector field; "vector" when empty
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// FilterQuery is the input for a paginated pre-filtered search without
// scoring. An empty filter matches every document of the index.
type FilterQuery struct {
	IndexName    string
	Filters      filter.Expression
	SortBy       string
	SortDesc     bool
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64 // KNN distance; zero for filtered searches
	Fields map[string]string
}
