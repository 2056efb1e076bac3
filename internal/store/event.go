package store

import "github.com/vegasarees/storefront/internal/domain"

// EventKind names a store change.
type EventKind string

const (
	ItemAdded       EventKind = "cart.item_added"
	ItemRemoved     EventKind = "cart.item_removed"
	QtyChanged      EventKind = "cart.qty_changed"
	CartCleared     EventKind = "cart.cleared"
	WishlistToggled EventKind = "wishlist.toggled"
	WishlistCleared EventKind = "wishlist.cleared"
	WishlistMoved   EventKind = "wishlist.moved_to_cart"
	ItemViewed      EventKind = "history.viewed"
	SearchRecorded  EventKind = "history.searched"
	FiltersUpdated  EventKind = "filters.updated"
	FiltersReset    EventKind = "filters.reset"
)

// Event describes one applied mutation. Counts are taken under the same lock
// as the mutation, so every listener sees the badge values that resulted
// from it.
type Event struct {
	Kind EventKind
	// Product is set for item-level changes.
	Product *domain.Product
	// Query is set for SearchRecorded.
	Query string
	// Token is the animation token after the mutation. It increases by one
	// on every ItemAdded and never otherwise.
	Token  int64
	Counts domain.Counts
}

// Listener receives events synchronously on the mutating goroutine.
type Listener func(Event)
