// Package mocks provides mock implementations for testing the order HTTP handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/allisson/orderflow/internal/order/domain"
)

// MockOrderUseCase is a mock implementation of OrderUseCase for testing.
type MockOrderUseCase struct {
	mock.Mock
}

// Create mocks the Create method of OrderUseCase.
func (m *MockOrderUseCase) Create(
	ctx context.Context,
	input domain.CreateOrderInput,
	idempotencyKey string,
) (*domain.CreateOrderResult, error) {
	args := m.Called(ctx, input, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreateOrderResult), args.Error(1)
}

// Get mocks the Get method of OrderUseCase.
func (m *MockOrderUseCase) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

// List mocks the List method of OrderUseCase.
func (m *MockOrderUseCase) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}
