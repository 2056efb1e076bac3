package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasarees/storefront/internal/storage/storagetest"
)

func TestStore_Contract(t *testing.T) {
	storagetest.Run(t, New())
}

func TestStore_CopiesValues(t *testing.T) {
	s := New()
	ctx := context.Background()

	buf := []byte("silk")
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'm'

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "silk", string(v))
	assert.Equal(t, 1, s.Len())
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, New().Set(ctx, "k", nil), context.Canceled)
}
