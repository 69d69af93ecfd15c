package domain

import "strings"

// SearchMode selects which server-side lookup the products registry uses.
type SearchMode string

const (
	// ModeAuto tries a name lookup first and falls back to an ingredient
	// lookup only when the name lookup yields nothing.
	ModeAuto       SearchMode = "auto"
	ModeName       SearchMode = "name"
	ModeIngredient SearchMode = "ingredient"
)

// MinTermLength is the minimum primary-term length (in runes) required before
// any network call is attempted.
const MinTermLength = 2

// Filters are applied client-side after per-source results return. A record
// must satisfy every active filter.
type Filters struct {
	Statuses       []string `json:"statuses,omitempty"`
	Routes         []string `json:"routes,omitempty"`
	Forms          []string `json:"forms,omitempty"`
	Companies      []string `json:"companies,omitempty"` // substring match
	CategoryPrefix string   `json:"categoryPrefix,omitempty"`
}

// Empty reports whether no filter is active.
func (f Filters) Empty() bool {
	return len(f.Statuses) == 0 && len(f.Routes) == 0 && len(f.Forms) == 0 &&
		len(f.Companies) == 0 && f.CategoryPrefix == ""
}

// Criteria is the user-supplied search input.
type Criteria struct {
	Term    string     `json:"term"`
	Mode    SearchMode `json:"mode,omitempty"`
	Sources []Source   `json:"sources,omitempty"` // empty means all
	Filters Filters    `json:"filters,omitempty"`
}

// Normalize trims the term and defaults mode and sources.
func (c Criteria) Normalize() Criteria {
	c.Term = strings.TrimSpace(c.Term)
	if c.Mode == "" {
		c.Mode = ModeAuto
	}
	if len(c.Sources) == 0 {
		c.Sources = AllSources()
	}
	return c
}

// TermTooShort reports whether the primary term is below the minimum length.
func (c Criteria) TermTooShort() bool {
	return len([]rune(strings.TrimSpace(c.Term))) < MinTermLength
}
