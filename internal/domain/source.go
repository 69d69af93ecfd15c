package domain

// Source identifies one origin registry. Record identifiers are only
// meaningful within their own source.
type Source string

const (
	SourceProducts      Source = "products"
	SourceApprovals     Source = "approvals"
	SourceReviewNew     Source = "review_new"
	SourceReviewGeneric Source = "review_generic"
)

// AllSources lists every queryable origin in dispatch order.
func AllSources() []Source {
	return []Source{SourceProducts, SourceApprovals, SourceReviewNew, SourceReviewGeneric}
}

// Valid reports whether s names a known origin registry.
func (s Source) Valid() bool {
	switch s {
	case SourceProducts, SourceApprovals, SourceReviewNew, SourceReviewGeneric:
		return true
	}
	return false
}
