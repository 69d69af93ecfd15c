package domain

// SearchResult is the merged envelope returned by the query engine. Sources
// that failed are reported explicitly instead of failing the whole query.
type SearchResult struct {
	Products  []Product      `json:"products"`
	Approvals []Approval     `json:"approvals"`
	Filings   []ReviewFiling `json:"filings"`
	Succeeded []Source       `json:"succeededSources"`
	Failed    []Source       `json:"failedSources"`
}

// Empty returns a zero-cost result for rejected queries.
func EmptyResult() *SearchResult {
	return &SearchResult{
		Products:  []Product{},
		Approvals: []Approval{},
		Filings:   []ReviewFiling{},
		Succeeded: []Source{},
		Failed:    []Source{},
	}
}

// Total counts records across all kinds.
func (r *SearchResult) Total() int {
	return len(r.Products) + len(r.Approvals) + len(r.Filings)
}
