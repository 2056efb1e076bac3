// Package storagetest holds the behaviour every storage.KV must share.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasarees/storefront/internal/storage"
)

// Run exercises kv against the storage.KV contract.
func Run(t *testing.T, kv storage.KV) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := kv.Get(ctx, "vega_missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("set get overwrite", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, "vega_cart", []byte(`{}`)))
		require.NoError(t, kv.Set(ctx, "vega_cart", []byte(`{"1":{"qty":1}}`)))

		v, err := kv.Get(ctx, "vega_cart")
		require.NoError(t, err)
		assert.Equal(t, `{"1":{"qty":1}}`, string(v))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, "vega_filters", []byte(`{}`)))
		require.NoError(t, kv.Delete(ctx, "vega_filters"))
		_, err := kv.Get(ctx, "vega_filters")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		// Deleting a missing key is not an error.
		assert.NoError(t, kv.Delete(ctx, "vega_filters"))
	})

	t.Run("namespaces are isolated", func(t *testing.T) {
		a := storage.WithPrefix(kv, storage.SessionPrefix("a"))
		b := storage.WithPrefix(kv, storage.SessionPrefix("b"))

		require.NoError(t, a.Set(ctx, "vega_wishlist", []byte(`A`)))
		require.NoError(t, b.Set(ctx, "vega_wishlist", []byte(`B`)))

		va, err := a.Get(ctx, "vega_wishlist")
		require.NoError(t, err)
		vb, err := b.Get(ctx, "vega_wishlist")
		require.NoError(t, err)
		assert.Equal(t, "A", string(va))
		assert.Equal(t, "B", string(vb))

		raw, err := kv.Get(ctx, "session:a:vega_wishlist")
		require.NoError(t, err)
		assert.Equal(t, "A", string(raw))
	})
}
