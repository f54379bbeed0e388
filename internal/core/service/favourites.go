package service

import (
	"context"
	"slices"

	"github.com/niksmo/product-explorer/internal/core/domain"
)

// Favourites returns the session's favourite product ids in the order
// they were added.
func (s *Service) Favourites(ctx context.Context, sessionID string) []string {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return slices.Clone(sess.favourites)
}

func (s *Service) FavouritesCount(ctx context.Context, sessionID string) int {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return len(sess.favourites)
}

func (s *Service) IsFavourite(
	ctx context.Context, sessionID, productID string,
) bool {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return slices.Contains(sess.favourites, productID)
}

func (s *Service) AddFavourite(
	ctx context.Context, sessionID, productID string,
) {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	if slices.Contains(sess.favourites, productID) {
		sess.mu.Unlock()
		return
	}
	sess.favourites = s.withFavourite(sess.favourites, productID)
	s.persist(ctx, sessionID, favouritesConcern, sess.favourites)
	sess.mu.Unlock()

	s.emit(ctx, s.event(sessionID, domain.FavouriteAdded, productID, 0))
}

func (s *Service) RemoveFavourite(
	ctx context.Context, sessionID, productID string,
) {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	if !slices.Contains(sess.favourites, productID) {
		sess.mu.Unlock()
		return
	}
	sess.favourites = s.withoutFavourite(sess.favourites, productID)
	s.persist(ctx, sessionID, favouritesConcern, sess.favourites)
	sess.mu.Unlock()

	s.emit(ctx, s.event(sessionID, domain.FavouriteRemoved, productID, 0))
}

// ToggleFavourite flips the favourite mark and reports whether the
// product is a favourite afterwards.
func (s *Service) ToggleFavourite(
	ctx context.Context, sessionID, productID string,
) bool {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	added := !slices.Contains(sess.favourites, productID)
	kind := domain.FavouriteRemoved
	if added {
		kind = domain.FavouriteAdded
		sess.favourites = s.withFavourite(sess.favourites, productID)
	} else {
		sess.favourites = s.withoutFavourite(sess.favourites, productID)
	}
	s.persist(ctx, sessionID, favouritesConcern, sess.favourites)
	sess.mu.Unlock()

	s.emit(ctx, s.event(sessionID, kind, productID, 0))
	return added
}

func (s *Service) ClearFavourites(ctx context.Context, sessionID string) {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	removed := sess.favourites
	sess.favourites = []string{}
	s.persist(ctx, sessionID, favouritesConcern, sess.favourites)
	sess.mu.Unlock()

	evts := make([]domain.ClientEvent, 0, len(removed))
	for _, id := range removed {
		evts = append(evts, s.event(sessionID, domain.FavouriteRemoved, id, 0))
	}
	s.emit(ctx, evts...)
}

// withFavourite and withoutFavourite return a new slice so that values
// handed out by Favourites are never changed afterwards.
func (s *Service) withFavourite(ids []string, id string) []string {
	return append(slices.Clip(ids), id)
}

func (s *Service) withoutFavourite(ids []string, id string) []string {
	return slices.DeleteFunc(slices.Clone(ids), func(v string) bool {
		return v == id
	})
}
