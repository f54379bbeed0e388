package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/niksmo/product-explorer/internal/core/catalog"
	"github.com/niksmo/product-explorer/internal/core/domain"
)

const (
	favouritesConcern = "favourites"
	cartConcern       = "cart"
	themeConcern      = "theme"
	adminConcern      = "admin"
)

type viewCache struct {
	valid   bool
	version uint64
	spec    domain.FilterSpec
	view    []domain.Product
}

// A session is the in-memory state of one browsing session. Everything
// but the filter is restored from the state store when the session is
// created again after eviction.
type session struct {
	id   string
	once sync.Once

	mu         sync.Mutex
	spec       domain.FilterSpec
	favourites []string
	cart       []cartEntry
	theme      domain.Theme
	admin      bool
	cache      viewCache
}

func (s *Service) session(ctx context.Context, id string) *session {
	s.sessMu.Lock()
	sess, ok := s.sessions.Get(id)
	if !ok {
		sess = &session{
			id:    id,
			spec:  domain.DefaultFilterSpec(),
			theme: s.defaultTheme,
		}
		s.sessions.Add(id, sess)
	}
	s.sessMu.Unlock()

	sess.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stateTimeout)
		defer cancel()
		s.initSession(ctx, sess)
	})
	return sess
}

func (s *Service) initSession(ctx context.Context, sess *session) {
	const op = "Service.initSession"
	log := slog.With("op", op, "session", sess.id)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	var favourites []string
	if s.restore(ctx, sess.id, favouritesConcern, &favourites) {
		sess.favourites = dedup(favourites)
	}

	var cart []cartEntry
	if s.restore(ctx, sess.id, cartConcern, &cart) {
		sess.cart = normalizeCart(cart)
	}

	var theme domain.Theme
	if s.restore(ctx, sess.id, themeConcern, &theme) && theme.Valid() {
		sess.theme = theme
	}

	var admin bool
	if s.restore(ctx, sess.id, adminConcern, &admin) {
		sess.admin = admin
	}

	log.Debug("session initialized",
		"nFavourites", len(sess.favourites), "nCart", len(sess.cart))
}

func (s *Service) Filter(ctx context.Context, sessionID string) domain.FilterSpec {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.spec
}

func (s *Service) updateFilter(
	ctx context.Context,
	sessionID string,
	fn func(domain.FilterSpec) domain.FilterSpec,
) domain.FilterSpec {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.spec = fn(sess.spec)
	return sess.spec
}

func (s *Service) SetSearchTerm(
	ctx context.Context, sessionID, term string,
) domain.FilterSpec {
	return s.updateFilter(ctx, sessionID, func(spec domain.FilterSpec) domain.FilterSpec {
		return spec.WithSearchTerm(term)
	})
}

func (s *Service) SetCategory(
	ctx context.Context, sessionID, category string,
) domain.FilterSpec {
	return s.updateFilter(ctx, sessionID, func(spec domain.FilterSpec) domain.FilterSpec {
		return spec.WithCategory(category)
	})
}

func (s *Service) SetPriceRange(
	ctx context.Context, sessionID string, min, max float64,
) domain.FilterSpec {
	return s.updateFilter(ctx, sessionID, func(spec domain.FilterSpec) domain.FilterSpec {
		return spec.WithPriceRange(min, max)
	})
}

func (s *Service) SetSort(
	ctx context.Context,
	sessionID string,
	field domain.SortField,
	order domain.SortOrder,
) domain.FilterSpec {
	return s.updateFilter(ctx, sessionID, func(spec domain.FilterSpec) domain.FilterSpec {
		return spec.WithSort(field, order)
	})
}

func (s *Service) ResetFilter(
	ctx context.Context, sessionID string,
) domain.FilterSpec {
	return s.updateFilter(ctx, sessionID, func(domain.FilterSpec) domain.FilterSpec {
		return domain.DefaultFilterSpec()
	})
}

// View returns the derived view of the session's filter spec.
//
// The result is memoized until either the spec or the catalog version
// changes.
func (s *Service) View(ctx context.Context, sessionID string) []domain.Product {
	sess := s.session(ctx, sessionID)
	products, version := s.catalog.snapshot()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return slices.Clone(sess.view(products, version))
}

// view must be called with sess.mu held.
func (sess *session) view(
	products []domain.Product, version uint64,
) []domain.Product {
	c := sess.cache
	if c.valid && c.version == version && c.spec == sess.spec {
		return c.view
	}
	sess.cache = viewCache{
		valid:   true,
		version: version,
		spec:    sess.spec,
		view:    catalog.ComputeView(products, sess.spec),
	}
	return sess.cache.view
}

// normalizeCart drops entries with quantity below one and merges
// repeated products into their first entry.
func normalizeCart(entries []cartEntry) []cartEntry {
	out := make([]cartEntry, 0, len(entries))
	pos := make(map[string]int, len(entries))
	for _, e := range entries {
		if e.Quantity < 1 || e.ProductID == "" {
			continue
		}
		if i, ok := pos[e.ProductID]; ok {
			out[i].Quantity += e.Quantity
			continue
		}
		pos[e.ProductID] = len(out)
		out = append(out, e)
	}
	return out
}

func dedup(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
