package domain

import "time"

// Product is the canonical record for the structured product registry.
// Values are immutable once mapped from a raw response; a re-fetch produces a
// new value that replaces the old one in cache.
type Product struct {
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	GenericName  string    `json:"genericName"`
	Manufacturer string    `json:"manufacturer"`
	Ingredients  []string  `json:"ingredients"`
	Routes       []string  `json:"routes"`
	Forms        []string  `json:"forms"`
	Category     string    `json:"category"` // therapeutic classification code
	Status       string    `json:"status"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NoveltyKey returns the identifier used for is-new comparison.
func (p Product) NoveltyKey() string { return p.Code }

// EventTime returns the record's last change timestamp.
func (p Product) EventTime() time.Time { return p.UpdatedAt }
