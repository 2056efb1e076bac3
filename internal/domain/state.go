package domain

// Counts are the badge counts every surface shows.
type Counts struct {
	Cart     int `json:"cartCount"`
	Wishlist int `json:"wishlistCount"`
}

// State is a consistent read of one shopper's store.
type State struct {
	Cart           Cart           `json:"cart"`
	Wishlist       Wishlist       `json:"wishlist"`
	RecentlyViewed []Product      `json:"recentlyViewed"`
	RecentSearches []string       `json:"recentlySearched"`
	Filters        ProductFilters `json:"productFilters"`
	Counts         Counts         `json:"counts"`
	CartSubtotal   float64        `json:"cartSubtotal"`
	CartTotal      float64        `json:"cartTotal"`
	AnimationToken int64          `json:"cartAnimationToken"`
	LastAdded      *Product       `json:"lastAddedProduct"`
}
