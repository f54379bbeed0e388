package domain

import "math"

type SortField string

const (
	SortByName   SortField = "name"
	SortByPrice  SortField = "price"
	SortByRating SortField = "rating"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// A FilterSpec is the search, filter and sort parameters of one
// browsing session.
//
// It is a comparable value: the With* methods return an updated copy
// and never touch the receiver.
type FilterSpec struct {
	SearchTerm string
	Category   string
	MinPrice   float64
	MaxPrice   float64
	SortBy     SortField
	SortOrder  SortOrder
}

func DefaultFilterSpec() FilterSpec {
	return FilterSpec{
		MinPrice:  0,
		MaxPrice:  math.MaxFloat64,
		SortBy:    SortByName,
		SortOrder: SortAsc,
	}
}

func (s FilterSpec) WithSearchTerm(term string) FilterSpec {
	s.SearchTerm = term
	return s
}

func (s FilterSpec) WithCategory(category string) FilterSpec {
	s.Category = category
	return s
}

func (s FilterSpec) WithPriceRange(min, max float64) FilterSpec {
	s.MinPrice = min
	s.MaxPrice = max
	return s
}

func (s FilterSpec) WithSort(field SortField, order SortOrder) FilterSpec {
	s.SortBy = field
	s.SortOrder = order
	return s
}
