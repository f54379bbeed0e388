package catalog_test

import (
	"testing"

	"github.com/niksmo/product-explorer/internal/core/catalog"
	"github.com/niksmo/product-explorer/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard(t *testing.T) {
	t.Run("Regular", func(t *testing.T) {
		view := []domain.Product{
			{ID: "1", Category: "Home", Price: 10, Stock: 0, Rating: 3},
			{ID: "2", Category: "Tech", Price: 100, Stock: 5, Rating: 5},
			{ID: "3", Category: "Home", Price: 20, Stock: 10, Rating: 4},
			{ID: "4", Category: "Tech", Price: 1, Stock: 9, Rating: 2},
			{ID: "5", Category: "Toys", Price: 2, Stock: 50, Rating: 4},
			{ID: "6", Category: "Toys", Price: 3, Stock: 1, Rating: 1},
		}

		stats := catalog.Dashboard(view, 3, 7)

		assert.Equal(t, 6, stats.TotalProducts)
		assert.InDelta(t, 0+500+200+9+100+3, stats.TotalValue, 1e-9)
		assert.Equal(t, 3, stats.LowStock)
		assert.Equal(t, 1, stats.OutOfStock)
		assert.InDelta(t, 19.0/6.0, stats.AvgRating, 1e-9)
		assert.Equal(t, 3, stats.TotalCategories)
		assert.Equal(t, 7, stats.TotalFavorites)

		require.Len(t, stats.TopRated, 5)
		ids := make([]string, len(stats.TopRated))
		for i, p := range stats.TopRated {
			ids[i] = p.ID
		}
		assert.Equal(t, []string{"2", "3", "5", "1", "4"}, ids)

		assert.Equal(t, []domain.CategoryStats{
			{Category: "Home", Count: 2, TotalValue: 200},
			{Category: "Tech", Count: 2, TotalValue: 509},
			{Category: "Toys", Count: 2, TotalValue: 103},
		}, stats.Categories)
	})

	t.Run("EmptyView", func(t *testing.T) {
		stats := catalog.Dashboard(nil, 0, 0)
		assert.Zero(t, stats.TotalProducts)
		assert.Zero(t, stats.AvgRating)
		assert.Empty(t, stats.TopRated)
		assert.Empty(t, stats.Categories)
	})
}
