package db

// KNNQuery is the input for vector similarity search. Filter is a
// RediSearch pre-filter query string ("*" when empty).
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Filter       string
	Vector       []float32
	K            int
	ReturnFields []string
}

// ListQuery is the input for paginated predicate search. SortBy names
// a sortable index field; when empty the index's default order is
// used.
type ListQuery struct {
	IndexName    string
	Query        string
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

// SearchEntry is a single document hit from a search. For KNN queries
// Score is the raw distance reported by the index (L2 or cosine,
// depending on the field's metric).
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
