package watch

import (
	"time"

	"drugwatch/internal/domain"
	"drugwatch/internal/novelty"
)

// Watch is a saved search whose owner wants to know when new records appear.
// Seen state lives server-side with the watch; identifiers in LastObserved
// and Seen are per-source and never compared across sources.
type Watch struct {
	ID       string            `json:"id"`
	Owner    string            `json:"owner"`
	Name     string            `json:"name"`
	Criteria domain.Criteria   `json:"criteria"`
	Seen     novelty.SeenState `json:"seen,omitempty"`

	// LastObserved holds the record keys returned by the most recent run,
	// per source. Marking the watch viewed folds these into Seen.
	LastObserved map[domain.Source][]string `json:"lastObserved,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	LastRunAt *time.Time `json:"lastRunAt,omitempty"`
}
