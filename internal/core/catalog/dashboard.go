package catalog

import (
	"cmp"
	"slices"

	"github.com/niksmo/product-explorer/internal/core/domain"
)

const (
	topRatedLimit     = 5
	lowStockThreshold = 10
)

// Dashboard aggregates admin statistics over view.
//
// Categories and favourites are passed in since they are counted
// over the whole catalog and the session respectively.
func Dashboard(
	view []domain.Product, totalCategories, totalFavourites int,
) domain.DashboardStats {
	stats := domain.DashboardStats{
		TotalProducts:   len(view),
		TotalCategories: totalCategories,
		TotalFavorites:  totalFavourites,
	}

	var ratingSum float64
	byCategory := make(map[string]int)
	for _, p := range view {
		value := p.Price * float64(p.Stock)
		stats.TotalValue += value
		ratingSum += p.Rating

		switch {
		case p.Stock == 0:
			stats.OutOfStock++
		case p.Stock < lowStockThreshold:
			stats.LowStock++
		}

		i, ok := byCategory[p.Category]
		if !ok {
			i = len(stats.Categories)
			byCategory[p.Category] = i
			stats.Categories = append(
				stats.Categories, domain.CategoryStats{Category: p.Category},
			)
		}
		stats.Categories[i].Count++
		stats.Categories[i].TotalValue += value
	}

	if len(view) > 0 {
		stats.AvgRating = ratingSum / float64(len(view))
	}

	stats.TopRated = topRated(view)
	return stats
}

func topRated(view []domain.Product) []domain.Product {
	sorted := slices.Clone(view)
	slices.SortStableFunc(sorted, func(a, b domain.Product) int {
		return cmp.Compare(b.Rating, a.Rating)
	})
	if len(sorted) > topRatedLimit {
		sorted = sorted[:topRatedLimit]
	}
	return sorted
}
