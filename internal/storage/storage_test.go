package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasarees/storefront/internal/storage"
	"github.com/vegasarees/storefront/internal/storage/memory"
)

func TestWithPrefix(t *testing.T) {
	kv := memory.New()

	assert.Same(t, kv, storage.WithPrefix(kv, ""))

	nested := storage.WithPrefix(storage.WithPrefix(kv, "vega:"), storage.SessionPrefix("s1"))
	_, ok := nested.(*storage.Namespaced)
	assert.True(t, ok)

	ctx := context.Background()
	require.NoError(t, nested.Set(ctx, "vega_cart", []byte("[]")))
	v, err := kv.Get(ctx, "vega:session:s1:vega_cart")
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)
}

type touchRecorder struct {
	storage.KV
	touched []string
}

func (r *touchRecorder) Touch(_ context.Context, keys ...string) error {
	r.touched = append(r.touched, keys...)
	return nil
}

func TestTouch(t *testing.T) {
	ctx := context.Background()

	// KVs without expiry ignore it.
	assert.NoError(t, storage.Touch(ctx, memory.New(), "a"))

	rec := &touchRecorder{KV: memory.New()}
	ns := storage.WithPrefix(storage.WithPrefix(rec, "vega:"), storage.SessionPrefix("s1"))
	require.NoError(t, storage.Touch(ctx, ns, "vega_cart", "vega_wishlist"))
	assert.Equal(t, []string{"vega:session:s1:vega_cart", "vega:session:s1:vega_wishlist"}, rec.touched)
}
