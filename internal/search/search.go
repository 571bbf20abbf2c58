// Package search powers the review panel's cross-sermon search: sermons
// and their quote texts, Meilisearch first with a Postgres full-text
// fallback when it is unreachable.
package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultSermon ResultType = "sermon"
	ResultQuote  ResultType = "quote"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type      ResultType `json:"type"`
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Snippet   string     `json:"snippet"`
	SermonID  string     `json:"sermonId"`
	Book      string     `json:"book,omitempty"`
	Reference string     `json:"reference,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text           string
	FilterType     ResultType // empty = all types
	FilterBook     string
	FilterSermonID string
	UnverifiedOnly bool
	Limit          int
	Offset         int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// SermonRecord is the data indexed for a sermon document.
type SermonRecord struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Speaker string   `json:"speaker"`
	Passage string   `json:"passage"`
	Tags    []string `json:"tags"`
}

// QuoteRecord is the data indexed for one quote block.
type QuoteRecord struct {
	ID          string `json:"id"`
	SermonID    string `json:"sermonId"`
	Text        string `json:"text"`
	Reference   string `json:"reference"`
	Book        string `json:"book"`
	Translation string `json:"translation"`
	Verified    bool   `json:"verified"`
}
