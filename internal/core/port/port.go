package port

import (
	"context"
	"sync"

	"github.com/niksmo/product-explorer/internal/core/domain"
)

type (
	runnerContextWg interface {
		Run(context.Context, context.CancelFunc, *sync.WaitGroup)
	}

	closer interface {
		Close()
	}
)

// Inbound

type ProductsSender interface {
	SendProducts(context.Context, []domain.Product) error
}

type ProductsSaver interface {
	SaveProducts(context.Context, []domain.Product) error
}

type CatalogBrowser interface {
	Status() domain.CatalogStatus
	Retry(context.Context) uint64
	Categories() []string
	ProductByID(id string) (domain.Product, error)
	Search(domain.FilterSpec) []domain.Product
	View(ctx context.Context, sessionID string) []domain.Product
}

type FilterEditor interface {
	Filter(ctx context.Context, sessionID string) domain.FilterSpec
	SetSearchTerm(ctx context.Context, sessionID, term string) domain.FilterSpec
	SetCategory(ctx context.Context, sessionID, category string) domain.FilterSpec
	SetPriceRange(ctx context.Context, sessionID string, min, max float64) domain.FilterSpec
	SetSort(ctx context.Context, sessionID string, field domain.SortField, order domain.SortOrder) domain.FilterSpec
	ResetFilter(ctx context.Context, sessionID string) domain.FilterSpec
}

type FavouritesManager interface {
	Favourites(ctx context.Context, sessionID string) []string
	IsFavourite(ctx context.Context, sessionID, productID string) bool
	AddFavourite(ctx context.Context, sessionID, productID string)
	RemoveFavourite(ctx context.Context, sessionID, productID string)
	ToggleFavourite(ctx context.Context, sessionID, productID string) bool
	ClearFavourites(ctx context.Context, sessionID string)
}

type CartManager interface {
	Cart(ctx context.Context, sessionID string) domain.Cart
	ToggleCart(ctx context.Context, sessionID, productID string) bool
	SetQuantity(ctx context.Context, sessionID, productID string, quantity int) error
	RemoveFromCart(ctx context.Context, sessionID, productID string)
	ClearCart(ctx context.Context, sessionID string)
}

type PreferencesManager interface {
	Theme(ctx context.Context, sessionID string) domain.Theme
	SetTheme(ctx context.Context, sessionID string, theme domain.Theme) error
	ToggleTheme(ctx context.Context, sessionID string) domain.Theme
	IsAdmin(ctx context.Context, sessionID string) bool
	SetAdmin(ctx context.Context, sessionID string, admin bool)
	ToggleAdmin(ctx context.Context, sessionID string) bool
	Dashboard(ctx context.Context, sessionID string) (domain.DashboardStats, error)
}

// An Explorer is everything the HTTP API serves.
type Explorer interface {
	ProductsSender
	CatalogBrowser
	FilterEditor
	FavouritesManager
	CartManager
	PreferencesManager
}

// Outbound

type ProductsSource interface {
	FetchProducts(context.Context) ([]domain.Product, error)
}

// A KeyValueStore persists opaque session state values.
//
// Get reports ok=false for a missing key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type ProductsProducer interface {
	ProduceProducts(context.Context, []domain.Product) error
}

type ClientEventsProducer interface {
	ProduceEvents(context.Context, ...domain.ClientEvent) error
}

type ProductsStorage interface {
	StoreProducts(context.Context, []domain.Product) error
}

type CatalogMetrics interface {
	ObserveLoad(ok bool, products int)
}

type StateTable interface {
	KeyValueStore
	runnerContextWg
	closer
}
