package service

import (
	"context"
	"fmt"

	"github.com/niksmo/product-explorer/internal/core/catalog"
	"github.com/niksmo/product-explorer/internal/core/domain"
)

func (s *Service) Theme(ctx context.Context, sessionID string) domain.Theme {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.theme
}

func (s *Service) SetTheme(
	ctx context.Context, sessionID string, theme domain.Theme,
) error {
	const op = "Service.SetTheme"

	if !theme.Valid() {
		return fmt.Errorf("%s: %q: %w", op, theme, domain.ErrInvalidTheme)
	}

	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.theme = theme
	s.persist(ctx, sessionID, themeConcern, sess.theme)
	return nil
}

func (s *Service) ToggleTheme(ctx context.Context, sessionID string) domain.Theme {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.theme = sess.theme.Toggle()
	s.persist(ctx, sessionID, themeConcern, sess.theme)
	return sess.theme
}

func (s *Service) IsAdmin(ctx context.Context, sessionID string) bool {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.admin
}

// SetAdmin is login (true) and logout (false) of the admin dashboard.
func (s *Service) SetAdmin(ctx context.Context, sessionID string, admin bool) {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.admin = admin
	s.persist(ctx, sessionID, adminConcern, sess.admin)
}

func (s *Service) ToggleAdmin(ctx context.Context, sessionID string) bool {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.admin = !sess.admin
	s.persist(ctx, sessionID, adminConcern, sess.admin)
	return sess.admin
}

// Dashboard aggregates admin statistics over the session's view.
func (s *Service) Dashboard(
	ctx context.Context, sessionID string,
) (domain.DashboardStats, error) {
	const op = "Service.Dashboard"

	sess := s.session(ctx, sessionID)
	products, version := s.catalog.snapshot()
	categories := len(s.Categories())

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !sess.admin {
		return domain.DashboardStats{}, fmt.Errorf("%s: %w", op, domain.ErrForbidden)
	}

	view := sess.view(products, version)
	return catalog.Dashboard(view, categories, len(sess.favourites)), nil
}
