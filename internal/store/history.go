package store

import (
	"context"

	"github.com/vegasarees/storefront/internal/domain"
)

// AddRecentlyViewed moves p to the front of the recently viewed list.
func (s *Store) AddRecentlyViewed(ctx context.Context, p domain.Product) error {
	return s.apply(ctx, func() *change {
		s.viewed = domain.PushRecentlyViewed(s.viewed, p)
		return &change{
			keys:  []string{KeyRecentlyViewed},
			event: Event{Kind: ItemViewed, Product: productRef(p)},
		}
	})
}

// AddSearchQuery records a trimmed, non-blank query at the front of the
// search history, replacing any case-insensitive duplicate.
func (s *Store) AddSearchQuery(ctx context.Context, q string) error {
	return s.apply(ctx, func() *change {
		next, ok := domain.PushSearch(s.searches, q)
		if !ok {
			return nil
		}
		s.searches = next
		return &change{
			keys:  []string{KeyRecentSearches},
			event: Event{Kind: SearchRecorded, Query: next[0]},
		}
	})
}

// RecentlyViewed returns the recently viewed products, most recent first.
func (s *Store) RecentlyViewed() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Product{}, s.viewed...)
}

// RecentSearches returns the search history, most recent first.
func (s *Store) RecentSearches() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.searches...)
}
