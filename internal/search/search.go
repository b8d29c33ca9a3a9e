package search

// CardRecord is the data we index for a card.
type CardRecord struct {
	ID          string `json:"id"`
	BoardID     string `json:"boardId"`
	ListID      string `json:"listId"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Query describes a card search request. BoardIDs restricts hits to boards
// the caller can access; an empty slice matches nothing.
type Query struct {
	Text     string
	BoardIDs []string
	Limit    int
	Offset   int
}

// Result is a single search hit returned to the caller.
type Result struct {
	ID      string `json:"id"`
	BoardID string `json:"boardId"`
	ListID  string `json:"listId"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a card search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push cards into a search index.
type Indexer interface {
	IndexCard(card CardRecord) error
	DeleteCard(id string) error
}
