package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"drugwatch/internal/domain"
)

func filterFixture() *domain.SearchResult {
	return &domain.SearchResult{
		Products: []domain.Product{
			{Code: "1001", Status: "approved", Routes: []string{"oral"}, Forms: []string{"tablet"},
				Manufacturer: "Daiichi Sankyo", Category: "1149"},
			{Code: "1002", Status: "approved", Routes: []string{"injection"}, Forms: []string{"vial"},
				Manufacturer: "Takeda", Category: "2190"},
		},
		Approvals: []domain.Approval{
			{Number: "A1", Status: "approved", Routes: []string{"oral"}, Forms: []string{"tablet"},
				Applicant: "Daiichi Sankyo", Category: "1149"},
			{Number: "A2", Status: "withdrawn", Routes: []string{"oral"}, Forms: []string{"tablet"},
				Applicant: "Sawai", Companies: []string{"Nichi-Iko"}, Category: "1149"},
		},
		Filings: []domain.ReviewFiling{
			{IngredientName: "loxoprofen", Applicant: "Daiichi Sankyo", Feed: domain.SourceReviewNew},
			{IngredientName: "ensitrelvir", Applicant: "Shionogi", Feed: domain.SourceReviewNew},
		},
		Succeeded: []domain.Source{},
		Failed:    []domain.Source{},
	}
}

func TestApplyFiltersEmptyKeepsEverything(t *testing.T) {
	res := filterFixture()
	applyFilters(res, domain.Filters{})
	require.Equal(t, 6, res.Total())
}

func TestApplyFiltersIntersectsAllActiveFilters(t *testing.T) {
	res := filterFixture()
	applyFilters(res, domain.Filters{
		Statuses: []string{"approved"},
		Routes:   []string{"oral"},
	})

	require.Len(t, res.Products, 1)
	require.Equal(t, "1001", res.Products[0].Code)
	require.Len(t, res.Approvals, 1)
	require.Equal(t, "A1", res.Approvals[0].Number)
}

func TestApplyFiltersCompanySubstringIsCaseInsensitive(t *testing.T) {
	res := filterFixture()
	applyFilters(res, domain.Filters{Companies: []string{"daiichi"}})

	require.Len(t, res.Products, 1)
	require.Len(t, res.Approvals, 1)
	require.Len(t, res.Filings, 1)
	require.Equal(t, "Daiichi Sankyo", res.Filings[0].Applicant)
}

func TestApplyFiltersCompanyMatchesCoMarketingCompanies(t *testing.T) {
	res := filterFixture()
	applyFilters(res, domain.Filters{Companies: []string{"nichi-iko"}})

	require.Len(t, res.Approvals, 1)
	require.Equal(t, "A2", res.Approvals[0].Number)
	require.Empty(t, res.Products)
}

func TestApplyFiltersCategoryPrefix(t *testing.T) {
	res := filterFixture()
	applyFilters(res, domain.Filters{CategoryPrefix: "11"})

	require.Len(t, res.Products, 1)
	require.Len(t, res.Approvals, 2)
}

func TestApplyFiltersAttributeFiltersDoNotWipeFilings(t *testing.T) {
	res := filterFixture()
	applyFilters(res, domain.Filters{Routes: []string{"oral"}})

	// Filings carry no route data; a route filter must not remove them.
	require.Len(t, res.Filings, 2)
	require.Len(t, res.Products, 1)
}
