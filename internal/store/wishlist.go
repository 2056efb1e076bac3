package store

import (
	"context"

	"github.com/vegasarees/storefront/internal/domain"
)

// ToggleWishlist removes p.ID from the wishlist if present, else adds p.
func (s *Store) ToggleWishlist(ctx context.Context, p domain.Product) error {
	return s.apply(ctx, func() *change {
		if _, ok := s.wishlist[p.ID]; ok {
			delete(s.wishlist, p.ID)
		} else {
			s.wishlist[p.ID] = p
		}
		return &change{
			keys:  []string{KeyWishlist},
			event: Event{Kind: WishlistToggled, Product: productRef(p)},
		}
	})
}

// InWishlist reports whether id is wishlisted.
func (s *Store) InWishlist(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.wishlist[id]
	return ok
}

// ClearWishlist empties the wishlist.
func (s *Store) ClearWishlist(ctx context.Context) error {
	return s.apply(ctx, func() *change {
		s.wishlist = domain.Wishlist{}
		return &change{keys: []string{KeyWishlist}, event: Event{Kind: WishlistCleared}}
	})
}

// MoveWishlistToCart adds one unit of every wishlisted product to the cart
// and empties the wishlist. Both entities change and are persisted under one
// lock, so no reader or listener sees one without the other. It does not
// advance the animation token.
func (s *Store) MoveWishlistToCart(ctx context.Context) error {
	return s.apply(ctx, func() *change {
		if len(s.wishlist) == 0 {
			return nil
		}
		for id, p := range s.wishlist {
			line := s.cart[id]
			s.cart[id] = domain.CartLine{Product: p, Qty: line.Qty + 1}
		}
		s.wishlist = domain.Wishlist{}
		return &change{
			keys:  []string{KeyCart, KeyWishlist},
			event: Event{Kind: WishlistMoved},
		}
	})
}

// Wishlist returns a copy of the wishlist.
func (s *Store) Wishlist() domain.Wishlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wishlist.Clone()
}

// WishlistCount is the number of wishlisted products.
func (s *Store) WishlistCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.wishlist)
}
