package domain

import "time"

type Product struct {
	ID          string
	Name        string
	Description string
	Category    string
	Price       float64
	Rating      float64
	Stock       int
	ImageURL    string
}

// Valid reports whether p can enter the catalog.
func (p Product) Valid() bool {
	return p.ID != "" && p.Name != "" &&
		p.Price >= 0 && p.Stock >= 0 &&
		p.Rating >= 0 && p.Rating <= 5
}

type CartItem struct {
	ProductID string
	Quantity  int
	AddedAt   time.Time
}

// A CartLine is a cart item joined with its catalog product.
type CartLine struct {
	CartItem
	Product Product
}

type Cart struct {
	Lines    []CartLine
	Count    int
	SubTotal float64
	Tax      float64
	Total    float64
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

type CatalogStatus struct {
	Loading    bool
	Error      string
	Generation uint64
	Products   int
}

type ClientEventKind string

const (
	FavouriteAdded   ClientEventKind = "favourite_added"
	FavouriteRemoved ClientEventKind = "favourite_removed"
	CartAdded        ClientEventKind = "cart_added"
	CartRemoved      ClientEventKind = "cart_removed"
	CartUpdated      ClientEventKind = "cart_updated"
)

type ClientEvent struct {
	SessionID  string
	Kind       ClientEventKind
	ProductID  string
	Quantity   int
	OccurredAt time.Time
}

type (
	DashboardStats struct {
		TotalProducts   int
		TotalValue      float64
		LowStock        int
		OutOfStock      int
		AvgRating       float64
		TotalCategories int
		TotalFavorites  int
		TopRated        []Product
		Categories      []CategoryStats
	}

	CategoryStats struct {
		Category   string
		Count      int
		TotalValue float64
	}
)
