package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/niksmo/product-explorer/internal/core/catalog"
	"github.com/niksmo/product-explorer/internal/core/domain"
)

const loadFailedMessage = "Failed to load products. Please try again."

// A catalogState is the loaded product collection.
//
// generation counts issued loads, version counts applied ones.
// Only the load holding the latest generation may change the state.
type catalogState struct {
	mu         sync.RWMutex
	products   []domain.Product
	categories []string
	generation uint64
	version    uint64
	loading    bool
	errMsg     string
}

func (c *catalogState) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.loading = true
	c.errMsg = ""
	return c.generation
}

func (c *catalogState) apply(gen uint64, ps []domain.Product) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.products = ps
	c.categories = catalog.UniqueCategories(ps)
	c.version++
	c.loading = false
	return true
}

func (c *catalogState) fail(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.products = nil
	c.categories = nil
	c.version++
	c.loading = false
	c.errMsg = loadFailedMessage
	return true
}

func (c *catalogState) snapshot() ([]domain.Product, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.products, c.version
}

// Load fetches the whole collection from the products source.
//
// Loads superseded by a later Load or Retry are discarded.
func (s *Service) Load(ctx context.Context) error {
	return s.load(ctx, s.catalog.begin())
}

// Retry reissues the catalog fetch in the background and returns its
// generation.
func (s *Service) Retry(ctx context.Context) uint64 {
	const op = "Service.Retry"
	log := slog.With("op", op)

	gen := s.catalog.begin()
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.load(ctx, gen); err != nil {
			log.Error("retry failed", "generation", gen, "err", err)
		}
	}()
	return gen
}

func (s *Service) load(ctx context.Context, gen uint64) error {
	const op = "Service.load"
	log := slog.With("op", op, "generation", gen)

	log.Info("loading products...")

	ps, err := s.source.FetchProducts(ctx)
	if err != nil {
		if !s.catalog.fail(gen) {
			log.Warn("superseded load failed", "err", err)
			return nil
		}
		s.observeLoad(false, 0)
		return fmt.Errorf("%s: %w: %w", op, domain.ErrLoadFailed, err)
	}

	ps = slices.Clone(ps)
	if !s.catalog.apply(gen, ps) {
		log.Warn("discard superseded load", "nProducts", len(ps))
		return nil
	}
	s.observeLoad(true, len(ps))

	log.Info("products loaded", "nProducts", len(ps))
	return nil
}

func (s *Service) observeLoad(ok bool, n int) {
	if s.metrics != nil {
		s.metrics.ObserveLoad(ok, n)
	}
}

func (s *Service) Status() domain.CatalogStatus {
	s.catalog.mu.RLock()
	defer s.catalog.mu.RUnlock()
	return domain.CatalogStatus{
		Loading:    s.catalog.loading,
		Error:      s.catalog.errMsg,
		Generation: s.catalog.generation,
		Products:   len(s.catalog.products),
	}
}

func (s *Service) Categories() []string {
	s.catalog.mu.RLock()
	defer s.catalog.mu.RUnlock()
	return slices.Clone(s.catalog.categories)
}

func (s *Service) ProductByID(id string) (domain.Product, error) {
	const op = "Service.ProductByID"

	products, _ := s.catalog.snapshot()
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, fmt.Errorf("%s: product %q: %w", op, id, domain.ErrNotFound)
}

// Search computes a view for spec without touching session state.
func (s *Service) Search(spec domain.FilterSpec) []domain.Product {
	products, _ := s.catalog.snapshot()
	return catalog.ComputeView(products, spec)
}
