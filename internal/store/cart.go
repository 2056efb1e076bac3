package store

import (
	"context"

	"github.com/vegasarees/storefront/internal/domain"
)

// AddToCart adds qty units of p, refreshing the line's product snapshot.
// Each call with qty >= 1 advances the animation token by one, records p as
// last added and emits exactly one ItemAdded event. qty <= 0 does nothing.
func (s *Store) AddToCart(ctx context.Context, p domain.Product, qty int) error {
	return s.apply(ctx, func() *change {
		if qty <= 0 {
			return nil
		}
		line := s.cart[p.ID]
		s.cart[p.ID] = domain.CartLine{Product: p, Qty: line.Qty + qty}
		s.token++
		s.lastAdded = productRef(p)
		return &change{
			keys:  []string{KeyCart},
			event: Event{Kind: ItemAdded, Product: productRef(p)},
		}
	})
}

// RemoveFromCart deletes the line for id if present.
func (s *Store) RemoveFromCart(ctx context.Context, id int64) error {
	return s.apply(ctx, func() *change {
		line, ok := s.cart[id]
		if !ok {
			return nil
		}
		delete(s.cart, id)
		return &change{
			keys:  []string{KeyCart},
			event: Event{Kind: ItemRemoved, Product: productRef(line.Product)},
		}
	})
}

// ChangeQty sets the quantity of an existing line. qty <= 0 removes it; a
// missing line is left alone.
func (s *Store) ChangeQty(ctx context.Context, id int64, qty int) error {
	return s.apply(ctx, func() *change {
		line, ok := s.cart[id]
		if !ok {
			return nil
		}
		if qty <= 0 {
			delete(s.cart, id)
			return &change{
				keys:  []string{KeyCart},
				event: Event{Kind: ItemRemoved, Product: productRef(line.Product)},
			}
		}
		line.Qty = qty
		s.cart[id] = line
		return &change{
			keys:  []string{KeyCart},
			event: Event{Kind: QtyChanged, Product: productRef(line.Product)},
		}
	})
}

// ClearCart empties the cart.
func (s *Store) ClearCart(ctx context.Context) error {
	return s.apply(ctx, func() *change {
		s.cart = domain.Cart{}
		return &change{keys: []string{KeyCart}, event: Event{Kind: CartCleared}}
	})
}

// InCart reports whether id has a cart line.
func (s *Store) InCart(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cart[id]
	return ok
}

// Cart returns a copy of the cart.
func (s *Store) Cart() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// CartCount is the total number of units in the cart.
func (s *Store) CartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Count()
}

// CartSubtotal is the sum of price times quantity.
func (s *Store) CartSubtotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Subtotal()
}

// CartTotal is the amount due for the cart; currently the subtotal.
func (s *Store) CartTotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Total()
}

// AnimationToken is the number of ItemAdded events so far.
func (s *Store) AnimationToken() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// LastAdded returns the product of the latest ItemAdded, or nil.
func (s *Store) LastAdded() *domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastAdded == nil {
		return nil
	}
	return productRef(*s.lastAdded)
}
