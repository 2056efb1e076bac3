// Package catalogtest provides a testify mock of catalog.Repository.
package catalogtest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/vegasarees/storefront/internal/catalog"
)

// MockRepository is a mock.Mock backed catalog.Repository.
type MockRepository struct {
	mock.Mock
}

var _ catalog.Repository = (*MockRepository)(nil)

func (m *MockRepository) List(ctx context.Context) ([]catalog.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, p *catalog.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockRepository) Update(ctx context.Context, p *catalog.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) Reset(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
