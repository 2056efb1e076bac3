package store

import (
	"context"

	"github.com/vegasarees/storefront/internal/domain"
)

// UpdateProductFilters merges the set fields of patch into the filters. An
// empty patch does nothing.
func (s *Store) UpdateProductFilters(ctx context.Context, patch domain.FiltersPatch) error {
	return s.apply(ctx, func() *change {
		if patch.Empty() {
			return nil
		}
		s.filters = s.filters.Merge(patch)
		return &change{keys: []string{KeyFilters}, event: Event{Kind: FiltersUpdated}}
	})
}

// ResetProductFilters restores domain.DefaultFilters.
func (s *Store) ResetProductFilters(ctx context.Context) error {
	return s.apply(ctx, func() *change {
		s.filters = domain.DefaultFilters()
		return &change{keys: []string{KeyFilters}, event: Event{Kind: FiltersReset}}
	})
}

// ProductFilters returns the active filters.
func (s *Store) ProductFilters() domain.ProductFilters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// Counts returns the cart and wishlist badge counts from one consistent read.
func (s *Store) Counts() domain.Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countsLocked()
}

// State returns a consistent copy of the whole store with derived values.
func (s *Store) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.State{
		Cart:           s.cart.Clone(),
		Wishlist:       s.wishlist.Clone(),
		RecentlyViewed: append([]domain.Product{}, s.viewed...),
		RecentSearches: append([]string{}, s.searches...),
		Filters:        s.filters,
		Counts:         s.countsLocked(),
		CartSubtotal:   s.cart.Subtotal(),
		CartTotal:      s.cart.Total(),
		AnimationToken: s.token,
	}
	if s.lastAdded != nil {
		st.LastAdded = productRef(*s.lastAdded)
	}
	return st
}
