package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/niksmo/product-explorer/internal/core/domain"
)

const taxRate = 0.15

// A cartEntry is the persisted form of [domain.CartItem].
type cartEntry struct {
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"addedAt"`
}

// Cart returns the session's cart joined with catalog products.
// Items of products missing from the catalog are skipped.
func (s *Service) Cart(ctx context.Context, sessionID string) domain.Cart {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	entries := slices.Clone(sess.cart)
	sess.mu.Unlock()

	products, _ := s.catalog.snapshot()
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	cart := domain.Cart{Lines: make([]domain.CartLine, 0, len(entries))}
	for _, e := range entries {
		cart.Count += e.Quantity
		p, ok := byID[e.ProductID]
		if !ok {
			continue
		}
		cart.Lines = append(cart.Lines, domain.CartLine{
			CartItem: domain.CartItem{
				ProductID: e.ProductID,
				Quantity:  e.Quantity,
				AddedAt:   e.AddedAt,
			},
			Product: p,
		})
		cart.SubTotal += p.Price * float64(e.Quantity)
	}
	cart.Tax = cart.SubTotal * taxRate
	cart.Total = cart.SubTotal + cart.Tax
	return cart
}

func (s *Service) CartItemCount(ctx context.Context, sessionID string) int {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	var n int
	for _, e := range sess.cart {
		n += e.Quantity
	}
	return n
}

func (s *Service) IsInCart(ctx context.Context, sessionID, productID string) bool {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return cartIndex(sess.cart, productID) >= 0
}

// ToggleCart adds the product with quantity 1 or removes it, and
// reports whether the product is in the cart afterwards.
func (s *Service) ToggleCart(
	ctx context.Context, sessionID, productID string,
) bool {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	var evt domain.ClientEvent
	added := cartIndex(sess.cart, productID) < 0
	if added {
		sess.cart = s.withCartEntry(sess.cart, productID, 1)
		evt = s.event(sessionID, domain.CartAdded, productID, 1)
	} else {
		sess.cart = withoutCartEntry(sess.cart, productID)
		evt = s.event(sessionID, domain.CartRemoved, productID, 0)
	}
	s.persist(ctx, sessionID, cartConcern, sess.cart)
	sess.mu.Unlock()

	s.emit(ctx, evt)
	return added
}

// AddToCart increases the product quantity by one, adding the item when
// absent.
func (s *Service) AddToCart(ctx context.Context, sessionID, productID string) {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	var evt domain.ClientEvent
	if i := cartIndex(sess.cart, productID); i >= 0 {
		sess.cart = slices.Clone(sess.cart)
		sess.cart[i].Quantity++
		evt = s.event(sessionID, domain.CartUpdated, productID, sess.cart[i].Quantity)
	} else {
		sess.cart = s.withCartEntry(sess.cart, productID, 1)
		evt = s.event(sessionID, domain.CartAdded, productID, 1)
	}
	s.persist(ctx, sessionID, cartConcern, sess.cart)
	sess.mu.Unlock()

	s.emit(ctx, evt)
}

// SetQuantity sets the product quantity. A quantity below one removes
// the item. Products unknown to the catalog are rejected.
func (s *Service) SetQuantity(
	ctx context.Context, sessionID, productID string, quantity int,
) error {
	const op = "Service.SetQuantity"

	if quantity < 1 {
		s.RemoveFromCart(ctx, sessionID, productID)
		return nil
	}

	if _, err := s.ProductByID(productID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	var evt domain.ClientEvent
	if i := cartIndex(sess.cart, productID); i >= 0 {
		sess.cart = slices.Clone(sess.cart)
		sess.cart[i].Quantity = quantity
		evt = s.event(sessionID, domain.CartUpdated, productID, quantity)
	} else {
		sess.cart = s.withCartEntry(sess.cart, productID, quantity)
		evt = s.event(sessionID, domain.CartAdded, productID, quantity)
	}
	s.persist(ctx, sessionID, cartConcern, sess.cart)
	sess.mu.Unlock()

	s.emit(ctx, evt)
	return nil
}

func (s *Service) RemoveFromCart(
	ctx context.Context, sessionID, productID string,
) {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	if cartIndex(sess.cart, productID) < 0 {
		sess.mu.Unlock()
		return
	}
	sess.cart = withoutCartEntry(sess.cart, productID)
	s.persist(ctx, sessionID, cartConcern, sess.cart)
	sess.mu.Unlock()

	s.emit(ctx, s.event(sessionID, domain.CartRemoved, productID, 0))
}

func (s *Service) ClearCart(ctx context.Context, sessionID string) {
	sess := s.session(ctx, sessionID)
	sess.mu.Lock()
	removed := sess.cart
	sess.cart = []cartEntry{}
	s.persist(ctx, sessionID, cartConcern, sess.cart)
	sess.mu.Unlock()

	evts := make([]domain.ClientEvent, 0, len(removed))
	for _, e := range removed {
		evts = append(evts, s.event(sessionID, domain.CartRemoved, e.ProductID, 0))
	}
	s.emit(ctx, evts...)
}

func (s *Service) withCartEntry(
	entries []cartEntry, productID string, quantity int,
) []cartEntry {
	return append(slices.Clip(entries), cartEntry{
		ProductID: productID,
		Quantity:  quantity,
		AddedAt:   s.now().UTC(),
	})
}

func withoutCartEntry(entries []cartEntry, productID string) []cartEntry {
	return slices.DeleteFunc(slices.Clone(entries), func(e cartEntry) bool {
		return e.ProductID == productID
	})
}

func cartIndex(entries []cartEntry, productID string) int {
	return slices.IndexFunc(entries, func(e cartEntry) bool {
		return e.ProductID == productID
	})
}
