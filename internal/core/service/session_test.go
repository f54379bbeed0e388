package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/niksmo/product-explorer/internal/adapter/kvstore"
	"github.com/niksmo/product-explorer/internal/core/catalog"
	"github.com/niksmo/product-explorer/internal/core/domain"
	"github.com/niksmo/product-explorer/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	ctx := t.Context()
	svc := newLoaded(t)

	t.Run("Default", func(t *testing.T) {
		assert.Equal(t, domain.DefaultFilterSpec(), svc.Filter(ctx, "f1"))
		assert.Equal(
			t, []domain.Product{book, headphones, laptop}, svc.View(ctx, "f1"),
		)
	})

	t.Run("Mutators", func(t *testing.T) {
		spec := svc.SetSearchTerm(ctx, "f2", "LAP")
		assert.Equal(t, "LAP", spec.SearchTerm)
		assert.Equal(t, []domain.Product{laptop}, svc.View(ctx, "f2"))

		svc.SetSearchTerm(ctx, "f2", "")
		spec = svc.SetCategory(ctx, "f2", "Electronics")
		assert.Equal(t, "Electronics", spec.Category)
		assert.Equal(t, []domain.Product{headphones, laptop}, svc.View(ctx, "f2"))

		spec = svc.SetPriceRange(ctx, "f2", 100, 500)
		assert.Equal(t, 100.0, spec.MinPrice)
		assert.Equal(t, 500.0, spec.MaxPrice)
		assert.Equal(t, []domain.Product{headphones}, svc.View(ctx, "f2"))

		svc.SetPriceRange(ctx, "f2", 0, 5000)
		spec = svc.SetSort(ctx, "f2", domain.SortByRating, domain.SortDesc)
		assert.Equal(t, domain.SortByRating, spec.SortBy)
		assert.Equal(t, []domain.Product{laptop, headphones}, svc.View(ctx, "f2"))

		assert.Equal(t, domain.DefaultFilterSpec(), svc.ResetFilter(ctx, "f2"))
		assert.Len(t, svc.View(ctx, "f2"), 3)
	})

	t.Run("SessionsAreIsolated", func(t *testing.T) {
		svc.SetCategory(ctx, "f3", "Books")
		assert.Equal(t, []domain.Product{book}, svc.View(ctx, "f3"))
		assert.Len(t, svc.View(ctx, "f4"), 3)
	})

	t.Run("ViewIsCopy", func(t *testing.T) {
		view := svc.View(ctx, "f5")
		view[0].Name = "changed"
		assert.Equal(t, "Book", svc.View(ctx, "f5")[0].Name)
	})
}

func TestViewFollowsCatalog(t *testing.T) {
	ctx := t.Context()
	source := new(MockProductsSource)
	source.On("FetchProducts", mock.Anything).
		Return([]domain.Product{book}, nil).Once()
	source.On("FetchProducts", mock.Anything).Return(sample, nil).Once()

	svc := service.New(source, kvstore.NewMemoryStore())
	require.NoError(t, svc.Load(ctx))
	assert.Equal(t, []domain.Product{book}, svc.View(ctx, "s1"))

	require.NoError(t, svc.Load(ctx))
	assert.Len(t, svc.View(ctx, "s1"), 3)
}

func TestFavourites(t *testing.T) {
	ctx := t.Context()
	events := new(recordingProducer)
	svc := newLoaded(t, service.ClientEventsProducerOpt(events))

	assert.Empty(t, svc.Favourites(ctx, "s1"))

	assert.True(t, svc.ToggleFavourite(ctx, "s1", "3"))
	svc.AddFavourite(ctx, "s1", "1")
	svc.AddFavourite(ctx, "s1", "1")
	assert.Equal(t, []string{"3", "1"}, svc.Favourites(ctx, "s1"))
	assert.Equal(t, 2, svc.FavouritesCount(ctx, "s1"))
	assert.True(t, svc.IsFavourite(ctx, "s1", "1"))
	assert.False(t, svc.IsFavourite(ctx, "s1", "2"))

	assert.False(t, svc.ToggleFavourite(ctx, "s1", "3"))
	assert.Equal(t, []string{"1"}, svc.Favourites(ctx, "s1"))

	svc.RemoveFavourite(ctx, "s1", "42")
	svc.AddFavourite(ctx, "s1", "2")
	svc.ClearFavourites(ctx, "s1")
	assert.Empty(t, svc.Favourites(ctx, "s1"))

	assert.Equal(t, []domain.ClientEventKind{
		domain.FavouriteAdded,
		domain.FavouriteAdded,
		domain.FavouriteRemoved,
		domain.FavouriteAdded,
		domain.FavouriteRemoved,
		domain.FavouriteRemoved,
	}, events.kinds())
}

func TestFavouritesSnapshotIsStable(t *testing.T) {
	ctx := t.Context()
	svc := newLoaded(t)

	svc.AddFavourite(ctx, "s1", "1")
	snapshot := svc.Favourites(ctx, "s1")
	svc.AddFavourite(ctx, "s1", "2")
	svc.RemoveFavourite(ctx, "s1", "1")

	assert.Equal(t, []string{"1"}, snapshot)
	assert.Equal(t, []string{"2"}, svc.Favourites(ctx, "s1"))
}

func TestCart(t *testing.T) {
	ctx := t.Context()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	events := new(recordingProducer)
	svc := newLoaded(t,
		service.ClientEventsProducerOpt(events),
		service.ClockOpt(func() time.Time { return now }),
	)

	assert.True(t, svc.ToggleCart(ctx, "s1", "1"))
	require.NoError(t, svc.SetQuantity(ctx, "s1", "3", 2))
	assert.True(t, svc.IsInCart(ctx, "s1", "3"))
	assert.Equal(t, 3, svc.CartItemCount(ctx, "s1"))

	cart := svc.Cart(ctx, "s1")
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, laptop, cart.Lines[0].Product)
	assert.Equal(t, 1, cart.Lines[0].Quantity)
	assert.Equal(t, now, cart.Lines[0].AddedAt)
	assert.Equal(t, headphones, cart.Lines[1].Product)
	assert.Equal(t, 2, cart.Lines[1].Quantity)
	assert.Equal(t, 3, cart.Count)
	assert.InDelta(t, 1400.0, cart.SubTotal, 1e-9)
	assert.InDelta(t, 210.0, cart.Tax, 1e-9)
	assert.InDelta(t, 1610.0, cart.Total, 1e-9)

	t.Run("AddToCartIncrements", func(t *testing.T) {
		svc.AddToCart(ctx, "s1", "1")
		assert.Equal(t, 4, svc.CartItemCount(ctx, "s1"))
	})

	t.Run("UnknownProduct", func(t *testing.T) {
		err := svc.SetQuantity(ctx, "s1", "42", 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("QuantityBelowOneRemoves", func(t *testing.T) {
		require.NoError(t, svc.SetQuantity(ctx, "s1", "3", 0))
		assert.False(t, svc.IsInCart(ctx, "s1", "3"))
	})

	t.Run("ToggleRemoves", func(t *testing.T) {
		assert.False(t, svc.ToggleCart(ctx, "s1", "1"))
		assert.Zero(t, svc.CartItemCount(ctx, "s1"))
	})

	t.Run("Clear", func(t *testing.T) {
		svc.ToggleCart(ctx, "s1", "2")
		svc.ClearCart(ctx, "s1")
		cart := svc.Cart(ctx, "s1")
		assert.Empty(t, cart.Lines)
		assert.Zero(t, cart.Total)
	})

	assert.Equal(t, []domain.ClientEventKind{
		domain.CartAdded,
		domain.CartAdded,
		domain.CartUpdated,
		domain.CartRemoved,
		domain.CartRemoved,
		domain.CartAdded,
		domain.CartRemoved,
	}, events.kinds())
}

func TestCartSkipsMissingProducts(t *testing.T) {
	ctx := t.Context()
	source := new(MockProductsSource)
	source.On("FetchProducts", mock.Anything).Return(sample, nil).Once()
	source.On("FetchProducts", mock.Anything).
		Return([]domain.Product{book}, nil).Once()

	svc := service.New(source, kvstore.NewMemoryStore())
	require.NoError(t, svc.Load(ctx))
	svc.ToggleCart(ctx, "s1", "1")
	svc.ToggleCart(ctx, "s1", "2")

	require.NoError(t, svc.Load(ctx))
	cart := svc.Cart(ctx, "s1")
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, book, cart.Lines[0].Product)
	assert.Equal(t, 2, cart.Count)
	assert.InDelta(t, 23.0, cart.Total, 1e-9)
}

func TestPreferences(t *testing.T) {
	ctx := t.Context()

	t.Run("Theme", func(t *testing.T) {
		svc := newLoaded(t)
		assert.Equal(t, domain.ThemeLight, svc.Theme(ctx, "s1"))
		assert.Equal(t, domain.ThemeDark, svc.ToggleTheme(ctx, "s1"))
		assert.Equal(t, domain.ThemeLight, svc.ToggleTheme(ctx, "s1"))

		require.NoError(t, svc.SetTheme(ctx, "s1", domain.ThemeDark))
		assert.Equal(t, domain.ThemeDark, svc.Theme(ctx, "s1"))

		err := svc.SetTheme(ctx, "s1", domain.Theme("sepia"))
		assert.ErrorIs(t, err, domain.ErrInvalidTheme)
		assert.Equal(t, domain.ThemeDark, svc.Theme(ctx, "s1"))
	})

	t.Run("DefaultTheme", func(t *testing.T) {
		svc := newLoaded(t, service.DefaultThemeOpt(domain.ThemeDark))
		assert.Equal(t, domain.ThemeDark, svc.Theme(ctx, "s1"))

		svc = newLoaded(t, service.DefaultThemeOpt(domain.Theme("bogus")))
		assert.Equal(t, domain.ThemeLight, svc.Theme(ctx, "s1"))
	})

	t.Run("Admin", func(t *testing.T) {
		svc := newLoaded(t)
		assert.False(t, svc.IsAdmin(ctx, "s1"))
		assert.True(t, svc.ToggleAdmin(ctx, "s1"))
		svc.SetAdmin(ctx, "s1", false)
		assert.False(t, svc.IsAdmin(ctx, "s1"))
	})
}

func TestDashboard(t *testing.T) {
	ctx := t.Context()
	svc := newLoaded(t)

	_, err := svc.Dashboard(ctx, "s1")
	require.ErrorIs(t, err, domain.ErrForbidden)

	svc.SetAdmin(ctx, "s1", true)
	svc.AddFavourite(ctx, "s1", "1")

	stats, err := svc.Dashboard(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalProducts)
	assert.InDelta(t, 15000.0, stats.TotalValue, 1e-9)
	assert.Equal(t, 1, stats.LowStock)
	assert.Equal(t, 1, stats.OutOfStock)
	assert.InDelta(t, 13.3/3, stats.AvgRating, 1e-9)
	assert.Equal(t, 2, stats.TotalCategories)
	assert.Equal(t, 1, stats.TotalFavorites)
	assert.Equal(t, []domain.Product{book, laptop, headphones}, stats.TopRated)
	assert.Equal(t, []domain.CategoryStats{
		{Category: "Books", Count: 1, TotalValue: 0},
		{Category: "Electronics", Count: 2, TotalValue: 15000},
	}, stats.Categories)

	t.Run("FollowsSessionView", func(t *testing.T) {
		svc.SetCategory(ctx, "s1", "Books")
		stats, err := svc.Dashboard(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalProducts)
		assert.Equal(t, 2, stats.TotalCategories)
	})
}

func TestPersistence(t *testing.T) {
	ctx := t.Context()
	store := kvstore.NewMemoryStore()
	source := new(MockProductsSource)
	source.On("FetchProducts", mock.Anything).Return(sample, nil)

	first := service.New(source, store)
	require.NoError(t, first.Load(ctx))
	first.AddFavourite(ctx, "s1", "2")
	first.AddFavourite(ctx, "s1", "1")
	require.NoError(t, first.SetQuantity(ctx, "s1", "3", 4))
	first.ToggleTheme(ctx, "s1")
	first.SetAdmin(ctx, "s1", true)
	first.SetCategory(ctx, "s1", "Books")

	second := service.New(source, store)
	require.NoError(t, second.Load(ctx))

	assert.Equal(t, []string{"2", "1"}, second.Favourites(ctx, "s1"))
	assert.Equal(t, 4, second.CartItemCount(ctx, "s1"))
	assert.Equal(t, domain.ThemeDark, second.Theme(ctx, "s1"))
	assert.True(t, second.IsAdmin(ctx, "s1"))
	assert.Equal(
		t, domain.DefaultFilterSpec(), second.Filter(ctx, "s1"),
		"filter is not persisted",
	)

	t.Run("CorruptValuesFallBack", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "s2:favourites", []byte("{broken")))
		require.NoError(t, store.Set(ctx, "s2:theme", []byte(`"sepia"`)))
		require.NoError(t, store.Set(ctx, "s2:cart", []byte("null")))

		third := service.New(source, store)
		assert.Empty(t, third.Favourites(ctx, "s2"))
		assert.Equal(t, domain.ThemeLight, third.Theme(ctx, "s2"))
		assert.Zero(t, third.CartItemCount(ctx, "s2"))
	})

	t.Run("CartEntriesAreNormalized", func(t *testing.T) {
		stored := `[
			{"productId":"1","quantity":-7},
			{"productId":"1","quantity":2},
			{"productId":"3","quantity":1},
			{"productId":"","quantity":4},
			{"productId":"3","quantity":2}
		]`
		require.NoError(t, store.Set(ctx, "s4:cart", []byte(stored)))

		third := service.New(source, store)
		require.NoError(t, third.Load(ctx))

		cart := third.Cart(ctx, "s4")
		assert.Equal(t, 5, cart.Count)
		require.Len(t, cart.Lines, 2)
		assert.Equal(t, "1", cart.Lines[0].ProductID)
		assert.Equal(t, 2, cart.Lines[0].Quantity)
		assert.Equal(t, "3", cart.Lines[1].ProductID)
		assert.Equal(t, 3, cart.Lines[1].Quantity)
		assert.InDelta(t, 2600.0, cart.SubTotal, 1e-9)
	})

	t.Run("DuplicateFavouritesAreDropped", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "s3:favourites", []byte(`["1","2","1"]`)))
		third := service.New(source, store)
		assert.Equal(t, []string{"1", "2"}, third.Favourites(ctx, "s3"))
	})
}

func TestFailingStateStore(t *testing.T) {
	ctx := t.Context()
	source := new(MockProductsSource)
	source.On("FetchProducts", mock.Anything).Return(sample, nil)

	svc := service.New(source, failingStore{})
	require.NoError(t, svc.Load(ctx))

	assert.True(t, svc.ToggleFavourite(ctx, "s1", "1"))
	assert.True(t, svc.ToggleCart(ctx, "s1", "2"))
	assert.Equal(t, domain.ThemeDark, svc.ToggleTheme(ctx, "s1"))

	assert.Equal(t, []string{"1"}, svc.Favourites(ctx, "s1"))
	assert.Equal(t, 1, svc.CartItemCount(ctx, "s1"))
	assert.Equal(t, domain.ThemeDark, svc.Theme(ctx, "s1"))
}

func TestEventProducerFailureIsTolerated(t *testing.T) {
	ctx := t.Context()
	events := &recordingProducer{err: context.DeadlineExceeded}
	svc := newLoaded(t, service.ClientEventsProducerOpt(events))

	assert.True(t, svc.ToggleFavourite(ctx, "s1", "1"))
	assert.True(t, svc.IsFavourite(ctx, "s1", "1"))
	assert.Len(t, events.kinds(), 1)
}

func TestCanceledContextOnFirstAccess(t *testing.T) {
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set(t.Context(), "s1:theme", []byte(`"dark"`)))

	source := new(MockProductsSource)
	svc := service.New(source, store)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.Equal(t, domain.ThemeDark, svc.Theme(ctx, "s1"))
}

func TestCanceledContextStillPersists(t *testing.T) {
	store := kvstore.NewMemoryStore()
	source := new(MockProductsSource)
	source.On("FetchProducts", mock.Anything).Return(sample, nil)

	svc := service.New(source, store)
	require.NoError(t, svc.Load(t.Context()))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	svc.AddFavourite(ctx, "s1", "1")
	require.NoError(t, svc.SetQuantity(ctx, "s1", "3", 2))
	svc.ToggleTheme(ctx, "s1")
	svc.SetAdmin(ctx, "s1", true)

	restarted := service.New(source, store)
	require.NoError(t, restarted.Load(t.Context()))

	assert.Equal(t, []string{"1"}, restarted.Favourites(t.Context(), "s1"))
	assert.Equal(t, 2, restarted.CartItemCount(t.Context(), "s1"))
	assert.Equal(t, domain.ThemeDark, restarted.Theme(t.Context(), "s1"))
	assert.True(t, restarted.IsAdmin(t.Context(), "s1"))
}

func TestSessionEviction(t *testing.T) {
	ctx := t.Context()
	svc := newLoaded(t, service.MaxSessionsOpt(2))

	svc.AddFavourite(ctx, "s1", "2")
	require.NoError(t, svc.SetQuantity(ctx, "s1", "1", 3))
	svc.SetCategory(ctx, "s1", "Books")

	for i := range 100 {
		svc.View(ctx, fmt.Sprintf("anon-%d", i))
	}
	assert.Equal(t, 2, svc.SessionCount())

	assert.Equal(t, []string{"2"}, svc.Favourites(ctx, "s1"), "restored from store")
	assert.Equal(t, 3, svc.CartItemCount(ctx, "s1"))
	assert.Equal(
		t, domain.DefaultFilterSpec(), svc.Filter(ctx, "s1"),
		"filter is not persisted",
	)
	assert.Equal(t, 2, svc.SessionCount())

	t.Run("RecentlyUsedIsKept", func(t *testing.T) {
		svc.SetCategory(ctx, "s2", "Books")
		svc.View(ctx, "other-1")
		svc.View(ctx, "s2")
		svc.View(ctx, "other-2")

		assert.Equal(t, "Books", svc.Filter(ctx, "s2").Category)
	})
}

func TestDefaultMaxSessions(t *testing.T) {
	ctx := t.Context()
	svc := newLoaded(t, service.MaxSessionsOpt(0))

	for i := range service.DefaultMaxSessions + 10 {
		svc.Theme(ctx, fmt.Sprintf("anon-%d", i))
	}
	assert.Equal(t, service.DefaultMaxSessions, svc.SessionCount())
}

func TestConcurrentWritersOnOneSession(t *testing.T) {
	ctx := t.Context()
	svc := newLoaded(t)

	const (
		writers = 8
		rounds  = 50
	)
	terms := []string{"lap", "book", "head", "o"}

	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range rounds {
				term := terms[(i+j)%len(terms)]
				spec := svc.SetSearchTerm(ctx, "s1", term)
				assert.Equal(t, term, spec.SearchTerm)

				svc.SetSort(ctx, "s1", domain.SortByPrice, domain.SortDesc)
				svc.AddToCart(ctx, "s1", "1")
				svc.ToggleFavourite(ctx, "s1", "2")
				svc.View(ctx, "s1")
				_, _ = svc.Dashboard(ctx, "s1")
			}
			svc.Retry(ctx)
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		return !svc.Status().Loading
	}, time.Second, 5*time.Millisecond)

	spec := svc.Filter(ctx, "s1")
	assert.Contains(t, terms, spec.SearchTerm, "one of the writes wins")
	assert.Equal(t, domain.SortByPrice, spec.SortBy)
	assert.Equal(t, catalog.ComputeView(sample, spec), svc.View(ctx, "s1"))

	assert.Equal(t, writers*rounds, svc.CartItemCount(ctx, "s1"), "no lost update")
	assert.False(t, svc.IsFavourite(ctx, "s1", "2"), "even number of toggles")
}
