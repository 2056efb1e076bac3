package seed

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vegasarees/storefront/internal/catalog"
	"github.com/vegasarees/storefront/internal/catalog/catalogtest"
	"github.com/vegasarees/storefront/internal/domain"
	"github.com/vegasarees/storefront/pkg/logger"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(50, 7, now)
	b := Generate(50, 7, now)
	c := Generate(50, 8, now)

	require.Len(t, a, 50)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestGenerate_FitsFilterVocabulary(t *testing.T) {
	products := Generate(300, 1, now)

	for _, p := range products {
		assert.Contains(t, Sizes, p.Size)
		assert.Contains(t, Fabrics, p.Fabric)
		assert.Contains(t, Colours, p.Colour)
		assert.Contains(t, Occasions, p.Occasion)
		assert.GreaterOrEqual(t, p.Price, 800.0)
		assert.LessOrEqual(t, p.Price, float64(domain.DefaultMaxPrice))
		assert.False(t, p.CreatedAt.After(now))
		assert.Len(t, p.Images, 2)

		if p.Discount > 0 {
			require.NotNil(t, p.OldPrice)
			assert.Greater(t, *p.OldPrice, p.Price)
		} else {
			assert.Nil(t, p.OldPrice)
		}
	}

	// Every product passes the default filters.
	assert.Len(t, catalog.Apply(products, domain.DefaultFilters()), len(products))
	assert.True(t, slices.ContainsFunc(products, func(p catalog.Product) bool { return p.Discount > 0 }))
}

func TestLoad_ResetsAndCreates(t *testing.T) {
	repo := &catalogtest.MockRepository{}
	repo.On("Reset", mock.Anything).Return(nil).Once()
	repo.On("Create", mock.Anything, mock.AnythingOfType("*catalog.Product")).Return(nil).Times(3)

	n, err := Load(context.Background(), repo, Generate(3, 1, now), true, logger.Discard())

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	repo.AssertExpectations(t)
}

func TestLoad_StopsOnError(t *testing.T) {
	repo := &catalogtest.MockRepository{}
	repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	n, err := Load(context.Background(), repo, Generate(5, 1, now), false, logger.Discard())

	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, err.Error(), "db down")
	repo.AssertNotCalled(t, "Reset", mock.Anything)
}

func TestLoad_ResetFailure(t *testing.T) {
	repo := &catalogtest.MockRepository{}
	repo.On("Reset", mock.Anything).Return(errors.New("denied"))

	n, err := Load(context.Background(), repo, Generate(2, 1, now), true, logger.Discard())

	require.Error(t, err)
	assert.Zero(t, n)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
