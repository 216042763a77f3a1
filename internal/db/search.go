package db

// KNNQuery is the input for vector similarity search. Tags become exact-match
// pre-filters applied before the KNN stage.
type KNNQuery struct {
	IndexName    string
	Tags         map[string]string
	Vector       []float32
	K            int
	ReturnFields []string
}

// ListQuery is the input for a filtered, ordered listing over an FT index.
type ListQuery struct {
	IndexName    string
	Tags         map[string]string
	Offset       int
	Limit        int
	SortBy       string
	SortDesc     bool
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search. For KNN queries Score
// is the cosine distance converted to similarity (1 - distance), clamped to
// [0,1]; HasScore distinguishes "score 0" from "backend returned no score".
type SearchEntry struct {
	Key      string
	Score    float64
	HasScore bool
	Fields   map[string]string
}
