package mocks

import (
	"context"

	"github.com/rpggio/siteledger/internal/storage"
	"github.com/stretchr/testify/mock"
)

var _ storage.Storage = (*Storage)(nil)

// Storage is a mock for storage.Storage.
type Storage struct {
	mock.Mock
}

func (m *Storage) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *Storage) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *Storage) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
