// Package source implements products sources reading the JSON product
// feed from a file or over HTTP.
package source

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/niksmo/product-explorer/internal/core/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// feedProduct is one element of the feed's top level JSON array.
type feedProduct struct {
	ID          string  `json:"id" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"imageUrl"`
	Rating      float64 `json:"rating" validate:"gte=0,lte=5"`
	Stock       int     `json:"stock" validate:"gte=0"`
}

func (p feedProduct) toDomain() domain.Product {
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

// DecodeFeed reads the product feed from r.
//
// Entries failing validation are skipped with a warning, a malformed
// document is an error.
func DecodeFeed(r io.Reader) ([]domain.Product, error) {
	const op = "source.DecodeFeed"
	log := slog.With("op", op)

	var feed []feedProduct
	if err := json.NewDecoder(r).Decode(&feed); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ps := make([]domain.Product, 0, len(feed))
	for i, fp := range feed {
		if err := validate.Struct(fp); err != nil {
			log.Warn("skip invalid product", "index", i, "id", fp.ID, "err", err)
			continue
		}
		ps = append(ps, fp.toDomain())
	}
	return ps, nil
}
