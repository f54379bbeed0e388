package httphandler

import (
	"math"
	"time"

	"github.com/niksmo/product-explorer/internal/core/domain"
)

// Responses

type (
	Product struct {
		ID          string  `json:"id" validate:"required"`
		Name        string  `json:"name" validate:"required"`
		Description string  `json:"description"`
		Price       float64 `json:"price" validate:"gte=0"`
		Category    string  `json:"category"`
		ImageURL    string  `json:"imageUrl"`
		Rating      float64 `json:"rating" validate:"gte=0,lte=5"`
		Stock       int     `json:"stock" validate:"gte=0"`
	}

	ProductDetails struct {
		Product
		IsFavourite bool `json:"isFavourite"`
	}

	ProductList struct {
		Products []Product `json:"products"`
		Count    int       `json:"count"`
	}

	FilterSpec struct {
		SearchTerm string  `json:"searchTerm"`
		Category   string  `json:"category"`
		MinPrice   float64 `json:"minPrice"`
		MaxPrice   float64 `json:"maxPrice"`
		SortBy     string  `json:"sortBy"`
		SortOrder  string  `json:"sortOrder"`
	}

	CatalogStatus struct {
		Loading    bool   `json:"loading"`
		Error      string `json:"error,omitempty"`
		Generation uint64 `json:"generation"`
		Products   int    `json:"products"`
	}

	CartLine struct {
		ProductID string    `json:"productId"`
		Quantity  int       `json:"quantity"`
		AddedAt   time.Time `json:"addedAt"`
		Product   Product   `json:"product"`
	}

	Cart struct {
		Items    []CartLine `json:"items"`
		Count    int        `json:"count"`
		SubTotal float64    `json:"subtotal"`
		Tax      float64    `json:"tax"`
		Total    float64    `json:"total"`
	}

	Favourites struct {
		IDs   []string `json:"ids"`
		Count int      `json:"count"`
	}

	CategoryStats struct {
		Category   string  `json:"category"`
		Count      int     `json:"count"`
		TotalValue float64 `json:"totalValue"`
	}

	DashboardStats struct {
		TotalProducts   int             `json:"totalProducts"`
		TotalValue      float64         `json:"totalValue"`
		LowStock        int             `json:"lowStock"`
		OutOfStock      int             `json:"outOfStock"`
		AvgRating       float64         `json:"avgRating"`
		TotalCategories int             `json:"totalCategories"`
		TotalFavorites  int             `json:"totalFavorites"`
		TopRated        []Product       `json:"topRated"`
		Categories      []CategoryStats `json:"categories"`
	}
)

// Requests

type (
	searchTermBody struct {
		Term string `json:"term" validate:"max=200"`
	}

	categoryBody struct {
		Category string `json:"category" validate:"max=100"`
	}

	priceRangeBody struct {
		Min *float64 `json:"min" validate:"omitempty,gte=0"`
		Max *float64 `json:"max" validate:"omitempty,gte=0"`
	}

	sortBody struct {
		SortBy    string `json:"sortBy" validate:"required,oneof=name price rating"`
		SortOrder string `json:"sortOrder" validate:"required,oneof=asc desc"`
	}

	quantityBody struct {
		Quantity *int `json:"quantity" validate:"required"`
	}

	themeBody struct {
		Theme string `json:"theme" validate:"required,oneof=light dark"`
	}

	// searchQuery is decoded from the query string of the stateless search.
	searchQuery struct {
		Term      string   `schema:"q" validate:"max=200"`
		Category  string   `schema:"category" validate:"max=100"`
		MinPrice  *float64 `schema:"minPrice" validate:"omitempty,gte=0"`
		MaxPrice  *float64 `schema:"maxPrice" validate:"omitempty,gte=0"`
		SortBy    string   `schema:"sortBy" validate:"omitempty,oneof=name price rating"`
		SortOrder string   `schema:"sortOrder" validate:"omitempty,oneof=asc desc"`
	}
)

func (b priceRangeBody) bounds() (lo, hi float64) {
	lo, hi = 0, math.MaxFloat64
	if b.Min != nil {
		lo = *b.Min
	}
	if b.Max != nil {
		hi = *b.Max
	}
	return lo, hi
}

func (q searchQuery) toDomain() domain.FilterSpec {
	spec := domain.DefaultFilterSpec().
		WithSearchTerm(q.Term).
		WithCategory(q.Category)

	lo, hi := priceRangeBody{Min: q.MinPrice, Max: q.MaxPrice}.bounds()
	spec = spec.WithPriceRange(lo, hi)

	if q.SortBy != "" || q.SortOrder != "" {
		field, order := spec.SortBy, spec.SortOrder
		if q.SortBy != "" {
			field = domain.SortField(q.SortBy)
		}
		if q.SortOrder != "" {
			order = domain.SortOrder(q.SortOrder)
		}
		spec = spec.WithSort(field, order)
	}
	return spec
}

func fromDomainProduct(p domain.Product) Product {
	return Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
		Rating:      p.Rating,
		Stock:       p.Stock,
	}
}

func (p Product) toDomain() domain.Product {
	return domain.Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Rating:      p.Rating,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
	}
}

func fromDomainProducts(ps []domain.Product) []Product {
	out := make([]Product, 0, len(ps))
	for _, p := range ps {
		out = append(out, fromDomainProduct(p))
	}
	return out
}

func productList(ps []domain.Product) ProductList {
	return ProductList{Products: fromDomainProducts(ps), Count: len(ps)}
}

func fromDomainFilter(s domain.FilterSpec) FilterSpec {
	return FilterSpec{
		SearchTerm: s.SearchTerm,
		Category:   s.Category,
		MinPrice:   s.MinPrice,
		MaxPrice:   s.MaxPrice,
		SortBy:     string(s.SortBy),
		SortOrder:  string(s.SortOrder),
	}
}

func fromDomainStatus(s domain.CatalogStatus) CatalogStatus {
	return CatalogStatus{
		Loading:    s.Loading,
		Error:      s.Error,
		Generation: s.Generation,
		Products:   s.Products,
	}
}

func fromDomainCart(c domain.Cart) Cart {
	items := make([]CartLine, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, CartLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			AddedAt:   l.AddedAt,
			Product:   fromDomainProduct(l.Product),
		})
	}
	return Cart{
		Items:    items,
		Count:    c.Count,
		SubTotal: c.SubTotal,
		Tax:      c.Tax,
		Total:    c.Total,
	}
}

func favourites(ids []string) Favourites {
	if ids == nil {
		ids = []string{}
	}
	return Favourites{IDs: ids, Count: len(ids)}
}

func fromDomainStats(s domain.DashboardStats) DashboardStats {
	cats := make([]CategoryStats, 0, len(s.Categories))
	for _, c := range s.Categories {
		cats = append(cats, CategoryStats{
			Category:   c.Category,
			Count:      c.Count,
			TotalValue: c.TotalValue,
		})
	}
	return DashboardStats{
		TotalProducts:   s.TotalProducts,
		TotalValue:      s.TotalValue,
		LowStock:        s.LowStock,
		OutOfStock:      s.OutOfStock,
		AvgRating:       s.AvgRating,
		TotalCategories: s.TotalCategories,
		TotalFavorites:  s.TotalFavorites,
		TopRated:        fromDomainProducts(s.TopRated),
		Categories:      cats,
	}
}
