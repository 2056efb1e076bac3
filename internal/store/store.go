// Package store implements the per-shopper shopping state: cart, wishlist,
// recently viewed products, recent searches and catalog filters, persisted
// to a storage.KV after every change.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/vegasarees/storefront/internal/domain"
	"github.com/vegasarees/storefront/internal/storage"
	apperrors "github.com/vegasarees/storefront/pkg/errors"
)

// Snapshot keys, one per entity.
const (
	KeyCart           = "vega_cart"
	KeyWishlist       = "vega_wishlist"
	KeyRecentlyViewed = "vega_recently_viewed"
	KeyRecentSearches = "vega_recently_searched"
	KeyFilters        = "vega_filters"
)

var sessionKeys = []string{KeyCart, KeyWishlist, KeyRecentlyViewed, KeyRecentSearches, KeyFilters}

// ErrClosed is returned by mutations on a closed store or registry.
var ErrClosed = apperrors.Unavailable("shopping store is closed", nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence failures and snapshot
// fallbacks.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store is one shopper's state. All methods are safe for concurrent use;
// mutations are applied one at a time.
//
// Listeners run after the mutation is applied and persisted, on the caller's
// goroutine, in mutation order. They may read the store but must not mutate
// it.
type Store struct {
	mu     sync.Mutex
	kv     storage.KV
	logger *slog.Logger

	cart      domain.Cart
	wishlist  domain.Wishlist
	viewed    []domain.Product
	searches  []string
	filters   domain.ProductFilters
	token     int64
	lastAdded *domain.Product
	closed    bool

	listeners []subscription
	nextID    uint64

	// Deliveries are ticketed under mu and run in ticket order without
	// holding mu, so listeners can read the store.
	emitMu    sync.Mutex
	emitCond  *sync.Cond
	issued    uint64
	delivered uint64
}

// Open builds a store over kv and rehydrates every entity from it. Missing
// or malformed snapshots fall back to the entity default.
func Open(ctx context.Context, kv storage.KV, opts ...Option) (*Store, error) {
	s := &Store{
		kv:     kv,
		logger: slog.Default(),
	}
	s.emitCond = sync.NewCond(&s.emitMu)
	for _, o := range opts {
		o(s)
	}
	if err := s.rehydrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context, key string) []byte {
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.WarnContext(ctx, "snapshot read failed, using default",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
	return data
}

func (s *Store) fallback(ctx context.Context, key string, ok bool) {
	if !ok {
		snapshotFallbacks.WithLabelValues(key).Inc()
		s.logger.DebugContext(ctx, "malformed snapshot discarded", slog.String("key", key))
	}
}

func (s *Store) rehydrate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var ok bool
	s.cart, ok = domain.DecodeCart(s.load(ctx, KeyCart))
	s.fallback(ctx, KeyCart, ok)
	s.wishlist, ok = domain.DecodeWishlist(s.load(ctx, KeyWishlist))
	s.fallback(ctx, KeyWishlist, ok)
	s.viewed, ok = domain.DecodeRecentlyViewed(s.load(ctx, KeyRecentlyViewed))
	s.fallback(ctx, KeyRecentlyViewed, ok)
	s.searches, ok = domain.DecodeRecentSearches(s.load(ctx, KeyRecentSearches))
	s.fallback(ctx, KeyRecentSearches, ok)
	s.filters, ok = domain.DecodeFilters(s.load(ctx, KeyFilters))
	s.fallback(ctx, KeyFilters, ok)
	if err := ctx.Err(); err != nil {
		return err
	}
	s.touch(ctx)
	return nil
}

// touch restarts the expiry of every snapshot together, so an active
// session never loses an entity it has not written lately.
func (s *Store) touch(ctx context.Context) {
	if err := storage.Touch(ctx, s.kv, sessionKeys...); err != nil {
		s.logger.WarnContext(ctx, "snapshot expiry refresh failed", slog.String("error", err.Error()))
	}
}

// Close detaches all listeners. Later mutations return ErrClosed; reads keep
// returning the last state. Close is idempotent.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.listeners = nil
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Subscribe registers l and returns a function that removes it. Listeners
// are called in subscription order.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, subscription{id: id, fn: l})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

type subscription struct {
	id uint64
	fn Listener
}

// change is the outcome of one applied mutation.
type change struct {
	keys  []string
	event Event
}

// apply runs fn under the lock. A nil change means nothing happened: no
// write, no event. Otherwise the touched keys are persisted and the event
// is delivered before apply returns.
func (s *Store) apply(ctx context.Context, fn func() *change) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	ch := fn()
	if ch == nil {
		s.mu.Unlock()
		return nil
	}

	for _, key := range ch.keys {
		s.persistLocked(ctx, key)
	}
	if len(ch.keys) > 0 {
		s.touch(ctx)
	}
	ev := ch.event
	ev.Token = s.token
	ev.Counts = s.countsLocked()

	listeners := make([]Listener, len(s.listeners))
	for i, sub := range s.listeners {
		listeners[i] = sub.fn
	}
	ticket := s.issued
	s.issued++
	s.mu.Unlock()

	mutationsTotal.WithLabelValues(string(ev.Kind)).Inc()
	s.deliver(ticket, ev, listeners)
	return nil
}

func (s *Store) deliver(ticket uint64, ev Event, listeners []Listener) {
	s.emitMu.Lock()
	for s.delivered != ticket {
		s.emitCond.Wait()
	}
	s.emitMu.Unlock()

	defer func() {
		s.emitMu.Lock()
		s.delivered++
		s.emitCond.Broadcast()
		s.emitMu.Unlock()
	}()

	for _, l := range listeners {
		l(ev)
	}
}

func (s *Store) persistLocked(ctx context.Context, key string) {
	var v any
	switch key {
	case KeyCart:
		v = s.cart
	case KeyWishlist:
		v = s.wishlist
	case KeyRecentlyViewed:
		v = s.viewed
	case KeyRecentSearches:
		v = s.searches
	case KeyFilters:
		v = s.filters
	}

	data, err := domain.Encode(v)
	if err == nil {
		err = s.kv.Set(ctx, key, data)
	}
	if err != nil {
		persistErrors.WithLabelValues(key).Inc()
		s.logger.WarnContext(ctx, "snapshot write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Store) countsLocked() domain.Counts {
	return domain.Counts{Cart: s.cart.Count(), Wishlist: len(s.wishlist)}
}

func productRef(p domain.Product) *domain.Product {
	return &p
}
