// Package novelty flags records that appeared since the caller last looked.
// It is a pure function over its inputs: no I/O, no caching, no mutation of
// the caller's seen state — the updated set is returned for the caller to
// persist.
package novelty

import (
	"time"

	"drugwatch/internal/domain"
)

// Keyed is any canonical record that can be compared across views. Each
// source has its own identifier space; never mix seen sets across sources.
type Keyed interface {
	NoveltyKey() string
	EventTime() time.Time
}

// Annotated pairs a record with its is-new flag.
type Annotated[R Keyed] struct {
	Record R    `json:"record"`
	IsNew  bool `json:"isNew"`
}

// SeenEntries is one source's previously-observed identifiers plus the last
// time the user reviewed this view. A nil LastViewedAt means never viewed.
type SeenEntries struct {
	LastViewedAt *time.Time `json:"lastViewedAt"`
	IDs          []string   `json:"ids"`
}

// idSet builds the membership set once per call.
func (s SeenEntries) idSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.IDs))
	for _, id := range s.IDs {
		set[id] = struct{}{}
	}
	return set
}

// Annotate flags each record as new or not:
//  1. never viewed before → every record is new;
//  2. identifier already seen → not new, regardless of its date;
//  3. otherwise new iff the event date is strictly after lastViewedAt.
func Annotate[R Keyed](records []R, seen SeenEntries) []Annotated[R] {
	out := make([]Annotated[R], len(records))
	ids := seen.idSet()
	for i, r := range records {
		out[i] = Annotated[R]{Record: r, IsNew: isNew(r, seen.LastViewedAt, ids)}
	}
	return out
}

func isNew(r Keyed, lastViewedAt *time.Time, seen map[string]struct{}) bool {
	if lastViewedAt == nil {
		return true
	}
	if _, ok := seen[r.NoveltyKey()]; ok {
		return false
	}
	return r.EventTime().After(*lastViewedAt)
}

// UpdatedSeen returns the seen set a caller should persist after reviewing
// records: the union of the previous identifiers and every current one, with
// lastViewedAt advanced to now.
func UpdatedSeen[R Keyed](records []R, prev SeenEntries, now time.Time) SeenEntries {
	set := prev.idSet()
	ids := make([]string, 0, len(set)+len(records))
	for _, id := range prev.IDs {
		ids = append(ids, id)
	}
	for _, r := range records {
		key := r.NoveltyKey()
		if _, ok := set[key]; !ok {
			set[key] = struct{}{}
			ids = append(ids, key)
		}
	}
	return SeenEntries{LastViewedAt: &now, IDs: ids}
}

// CountNew tallies flagged records.
func CountNew[R Keyed](annotated []Annotated[R]) int {
	n := 0
	for _, a := range annotated {
		if a.IsNew {
			n++
		}
	}
	return n
}

// AnnotatedResult is a full search result with per-record novelty flags.
type AnnotatedResult struct {
	Products  []Annotated[domain.Product]      `json:"products"`
	Approvals []Annotated[domain.Approval]     `json:"approvals"`
	Filings   []Annotated[domain.ReviewFiling] `json:"filings"`
	Succeeded []domain.Source                  `json:"succeededSources"`
	Failed    []domain.Source                  `json:"failedSources"`
}

// SeenState carries each source's seen entries; identifiers are only
// comparable within their own source.
type SeenState map[domain.Source]SeenEntries

// AnnotateResult applies per-source annotation to a merged search result.
func AnnotateResult(res *domain.SearchResult, state SeenState) *AnnotatedResult {
	filings := res.Filings
	byFeed := func(src domain.Source) []domain.ReviewFiling {
		var out []domain.ReviewFiling
		for _, f := range filings {
			if f.Feed == src {
				out = append(out, f)
			}
		}
		return out
	}

	out := &AnnotatedResult{
		Products:  Annotate(res.Products, state[domain.SourceProducts]),
		Approvals: Annotate(res.Approvals, state[domain.SourceApprovals]),
		Succeeded: res.Succeeded,
		Failed:    res.Failed,
	}
	out.Filings = append(
		Annotate(byFeed(domain.SourceReviewNew), state[domain.SourceReviewNew]),
		Annotate(byFeed(domain.SourceReviewGeneric), state[domain.SourceReviewGeneric])...,
	)
	return out
}
