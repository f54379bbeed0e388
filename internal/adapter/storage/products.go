package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/niksmo/product-explorer/internal/core/domain"
	"github.com/niksmo/product-explorer/internal/core/port"
)

var (
	_ port.ProductsStorage = ProductsRepository{}
	_ port.ProductsSource  = ProductsRepository{}
)

type ProductsRepository struct {
	sqldb sqldb
}

func NewProductsRepository(sqldb sqldb) ProductsRepository {
	return ProductsRepository{sqldb}
}

// StoreProducts upserts ps in a single transaction. Products keep the
// position of their first insert.
func (r ProductsRepository) StoreProducts(
	ctx context.Context, ps []domain.Product,
) (storeErr error) {
	const op = "ProductsRepository.StoreProducts"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tx, err := r.sqldb.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin tx: %w", op, err)
	}

	defer func() {
		if storeErr == nil {
			if err := tx.Commit(); err != nil {
				storeErr = fmt.Errorf("%s: failed to commit: %w", op, err)
			}
			return
		}

		if err := tx.Rollback(); err != nil {
			log.Error("failed to rollback tx", "err", err)
		}
	}()

	query := `
		INSERT INTO products (
			id, name, description, category,
			price, rating, stock, image_url
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			rating = EXCLUDED.rating,
			stock = EXCLUDED.stock,
			image_url = EXCLUDED.image_url,
			updated_at = now();
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("%s: failed to prepare stmt: %w", op, err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			log.Error("failed to close prepared stmt", "err", err)
		}
	}()

	for _, p := range ps {
		_, err := stmt.ExecContext(ctx,
			p.ID, p.Name, p.Description, p.Category,
			p.Price, p.Rating, p.Stock, p.ImageURL,
		)
		if err != nil {
			return fmt.Errorf("%s: failed to exec: %w", op, err)
		}
	}

	log.Info("products stored", "nProducts", len(ps))
	return nil
}

// FetchProducts reads the whole collection in insertion order.
func (r ProductsRepository) FetchProducts(
	ctx context.Context,
) ([]domain.Product, error) {
	const op = "ProductsRepository.FetchProducts"

	query := `
		SELECT id, name, description, category, price, rating, stock, image_url
		FROM products
		ORDER BY seq ASC;`

	rows, err := r.sqldb.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var ps []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ps = append(ps, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (domain.Product, error) {
	var p domain.Product
	err := s.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category,
		&p.Price, &p.Rating, &p.Stock, &p.ImageURL,
	)
	return p, err
}
