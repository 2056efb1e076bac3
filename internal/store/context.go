package store

import (
	"context"
	"errors"

	apperrors "github.com/vegasarees/storefront/pkg/errors"
)

// ErrNoStore is returned when a context carries no store.
var ErrNoStore = apperrors.Internal(errors.New("no shopping store in context"))

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the store carried by ctx, or ErrNoStore.
func FromContext(ctx context.Context) (*Store, error) {
	s, ok := ctx.Value(ctxKey{}).(*Store)
	if !ok || s == nil {
		return nil, ErrNoStore
	}
	return s, nil
}

// MustFromContext is FromContext for code paths composed so that a store is
// always present. It panics otherwise.
func MustFromContext(ctx context.Context) *Store {
	s, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return s
}
