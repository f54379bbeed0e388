// Package catalog computes derived product views.
//
// Everything here is pure: inputs are never mutated and results depend
// only on the arguments, so callers may recompute on every read.
package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/niksmo/product-explorer/internal/core/domain"
)

// ComputeView returns the products satisfying spec, ordered by
// spec.SortBy. Equal keys keep their input order in both directions.
//
// A spec with MinPrice > MaxPrice yields an empty view.
func ComputeView(
	products []domain.Product, spec domain.FilterSpec,
) []domain.Product {
	term := strings.ToLower(spec.SearchTerm)

	view := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if !matchSearch(p, term) {
			continue
		}
		if spec.Category != "" && p.Category != spec.Category {
			continue
		}
		if p.Price < spec.MinPrice || p.Price > spec.MaxPrice {
			continue
		}
		view = append(view, p)
	}

	compare := comparator(spec.SortBy)
	desc := spec.SortOrder == domain.SortDesc
	slices.SortStableFunc(view, func(a, b domain.Product) int {
		c := compare(a, b)
		if desc {
			return -c
		}
		return c
	})
	return view
}

// UniqueCategories returns every category of products once,
// lexicographically sorted.
func UniqueCategories(products []domain.Product) []string {
	categories := make([]string, 0, len(products))
	for _, p := range products {
		categories = append(categories, p.Category)
	}
	slices.Sort(categories)
	return slices.Compact(categories)
}

func matchSearch(p domain.Product, lowerTerm string) bool {
	if lowerTerm == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), lowerTerm) ||
		strings.Contains(strings.ToLower(p.Description), lowerTerm)
}

func comparator(field domain.SortField) func(a, b domain.Product) int {
	switch field {
	case domain.SortByName:
		return func(a, b domain.Product) int {
			return strings.Compare(a.Name, b.Name)
		}
	case domain.SortByPrice:
		return func(a, b domain.Product) int {
			return cmp.Compare(a.Price, b.Price)
		}
	case domain.SortByRating:
		return func(a, b domain.Product) int {
			return cmp.Compare(a.Rating, b.Rating)
		}
	default:
		return func(domain.Product, domain.Product) int { return 0 }
	}
}
