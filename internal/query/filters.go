package query

import (
	"strings"

	"drugwatch/internal/domain"
)

// applyFilters narrows a merged result in place. A record survives only if it
// satisfies every active filter; attribute filters a record kind does not
// carry (a filing has no routes or forms) are skipped for that kind rather
// than wiping it out.
func applyFilters(res *domain.SearchResult, f domain.Filters) {
	if f.Empty() {
		return
	}

	products := res.Products[:0]
	for _, p := range res.Products {
		if productMatches(p, f) {
			products = append(products, p)
		}
	}
	res.Products = products

	approvals := res.Approvals[:0]
	for _, a := range res.Approvals {
		if approvalMatches(a, f) {
			approvals = append(approvals, a)
		}
	}
	res.Approvals = approvals

	filings := res.Filings[:0]
	for _, fl := range res.Filings {
		if filingMatches(fl, f) {
			filings = append(filings, fl)
		}
	}
	res.Filings = filings
}

func productMatches(p domain.Product, f domain.Filters) bool {
	return inSet(p.Status, f.Statuses) &&
		anyInSet(p.Routes, f.Routes) &&
		anyInSet(p.Forms, f.Forms) &&
		companyMatches([]string{p.Manufacturer}, f.Companies) &&
		prefixMatches(p.Category, f.CategoryPrefix)
}

func approvalMatches(a domain.Approval, f domain.Filters) bool {
	companies := append([]string{a.Applicant}, a.Companies...)
	return inSet(a.Status, f.Statuses) &&
		anyInSet(a.Routes, f.Routes) &&
		anyInSet(a.Forms, f.Forms) &&
		companyMatches(companies, f.Companies) &&
		prefixMatches(a.Category, f.CategoryPrefix)
}

func filingMatches(fl domain.ReviewFiling, f domain.Filters) bool {
	return companyMatches([]string{fl.Applicant}, f.Companies)
}

// inSet is satisfied when the filter is inactive or the value matches one of
// its entries, case-insensitively.
func inSet(value string, set []string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if strings.EqualFold(value, s) {
			return true
		}
	}
	return false
}

// anyInSet is satisfied when the filter is inactive or at least one of the
// record's values is in the set.
func anyInSet(values, set []string) bool {
	if len(set) == 0 {
		return true
	}
	for _, v := range values {
		if inSet(v, set) {
			return true
		}
	}
	return false
}

// companyMatches is a case-insensitive substring match against any of the
// record's company names.
func companyMatches(names, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, w := range wanted {
		needle := strings.ToLower(w)
		for _, n := range names {
			if strings.Contains(strings.ToLower(n), needle) {
				return true
			}
		}
	}
	return false
}

func prefixMatches(category, prefix string) bool {
	return prefix == "" || strings.HasPrefix(category, prefix)
}
