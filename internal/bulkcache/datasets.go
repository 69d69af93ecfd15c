package bulkcache

import (
	"strings"
	"time"

	"drugwatch/internal/domain"
)

// The approvals registry offers no server-side search; its useful access
// pattern is the whole dataset. Five raw datasets make up the bulk source,
// each a flat JSON array keyed into the primary dataset by approval number.
const (
	datasetApprovals   = "approvals"
	datasetIngredients = "ingredients"
	datasetRoutes      = "routes"
	datasetForms       = "forms"
	datasetCompanies   = "companies"
)

var datasetOrder = []string{
	datasetApprovals,
	datasetIngredients,
	datasetRoutes,
	datasetForms,
	datasetCompanies,
}

type rawApproval struct {
	Number      string `json:"number"`
	BrandName   string `json:"brandName"`
	GenericName string `json:"genericName"`
	Applicant   string `json:"applicant"`
	Category    string `json:"categoryCode"`
	Status      string `json:"status"`
	ApprovedAt  string `json:"approvedAt"`
}

// rawLink is a secondary dataset row: one attribute value tied to its
// primary record by approval number.
type rawLink struct {
	ApprovalNumber string `json:"approvalNumber"`
	Name           string `json:"name"`
}

// rawDatasets accumulates the five fetches before the index build.
type rawDatasets struct {
	approvals   []rawApproval
	ingredients []rawLink
	routes      []rawLink
	forms       []rawLink
	companies   []rawLink
}

// Snapshot is one complete, immutable build of the bulk cache. Consumers
// only ever observe a finished snapshot; a new build replaces the pointer
// atomically and in-progress readers keep the old one.
type Snapshot struct {
	byNumber     map[string]*domain.Approval
	byIngredient map[string][]*domain.Approval
	all          []*domain.Approval
	builtAt      time.Time
}

// build iterates each dataset once, grouping secondary rows by their foreign
// key into the primary dataset.
func build(raw rawDatasets, builtAt time.Time) *Snapshot {
	s := &Snapshot{
		byNumber:     make(map[string]*domain.Approval, len(raw.approvals)),
		byIngredient: make(map[string][]*domain.Approval),
		all:          make([]*domain.Approval, 0, len(raw.approvals)),
		builtAt:      builtAt,
	}

	for _, r := range raw.approvals {
		a := &domain.Approval{
			Number:      r.Number,
			BrandName:   r.BrandName,
			GenericName: r.GenericName,
			Applicant:   r.Applicant,
			Category:    r.Category,
			Status:      r.Status,
			ApprovedAt:  parseDate(r.ApprovedAt),
			Companies:   []string{},
			Ingredients: []string{},
			Routes:      []string{},
			Forms:       []string{},
		}
		s.byNumber[a.Number] = a
		s.all = append(s.all, a)
	}

	group := func(rows []rawLink, attach func(a *domain.Approval, name string)) {
		for _, row := range rows {
			if a, ok := s.byNumber[row.ApprovalNumber]; ok && row.Name != "" {
				attach(a, row.Name)
			}
		}
	}
	group(raw.ingredients, func(a *domain.Approval, name string) {
		a.Ingredients = append(a.Ingredients, name)
		key := strings.ToLower(name)
		s.byIngredient[key] = append(s.byIngredient[key], a)
	})
	group(raw.routes, func(a *domain.Approval, name string) { a.Routes = append(a.Routes, name) })
	group(raw.forms, func(a *domain.Approval, name string) { a.Forms = append(a.Forms, name) })
	group(raw.companies, func(a *domain.Approval, name string) { a.Companies = append(a.Companies, name) })

	return s
}

// BuiltAt reports when this snapshot finished building.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Size reports the primary record count.
func (s *Snapshot) Size() int { return len(s.all) }

// GetByNumber looks up one approval by decision number.
func (s *Snapshot) GetByNumber(number string) (domain.Approval, bool) {
	a, ok := s.byNumber[number]
	if !ok {
		return domain.Approval{}, false
	}
	return *a, true
}

// SearchByName scans brand and generic names for a case-insensitive
// substring match.
func (s *Snapshot) SearchByName(term string) []domain.Approval {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil
	}
	var out []domain.Approval
	for _, a := range s.all {
		if strings.Contains(strings.ToLower(a.BrandName), needle) ||
			strings.Contains(strings.ToLower(a.GenericName), needle) {
			out = append(out, *a)
		}
	}
	return out
}

// SearchByIngredient matches against the ingredient index.
func (s *Snapshot) SearchByIngredient(term string) []domain.Approval {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []domain.Approval
	for key, group := range s.byIngredient {
		if !strings.Contains(key, needle) {
			continue
		}
		for _, a := range group {
			if _, dup := seen[a.Number]; dup {
				continue
			}
			seen[a.Number] = struct{}{}
			out = append(out, *a)
		}
	}
	return out
}

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
