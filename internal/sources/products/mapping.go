package products

import (
	"time"

	"drugwatch/internal/domain"
)

// rawProduct mirrors one registry row. The registry dates are date-only
// strings; absent or malformed dates map to the zero time.
type rawProduct struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	GenericName  string `json:"genericName"`
	Manufacturer string `json:"makerName"`
	Category     string `json:"categoryCode"`
	Status       string `json:"status"`
	UpdatedAt    string `json:"updatedAt"`
}

type rawAttribute struct {
	Name string `json:"name"`
}

func (r rawProduct) toDomain() domain.Product {
	return domain.Product{
		Code:         r.Code,
		Name:         r.Name,
		GenericName:  r.GenericName,
		Manufacturer: r.Manufacturer,
		Category:     r.Category,
		Status:       r.Status,
		UpdatedAt:    parseDate(r.UpdatedAt),
		Ingredients:  []string{},
		Routes:       []string{},
		Forms:        []string{},
	}
}

// parseDate accepts the registry's date-only format, falling back to
// RFC 3339 for endpoints that return full timestamps.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
