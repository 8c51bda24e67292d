// Package mocks provides mock implementations for testing the customer HTTP handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/allisson/orderflow/internal/customer/domain"
)

// MockCustomerUseCase is a mock implementation of CustomerUseCase for testing.
type MockCustomerUseCase struct {
	mock.Mock
}

// Apply mocks the Apply method of CustomerUseCase.
func (m *MockCustomerUseCase) Apply(ctx context.Context, event domain.OrderCreatedEvent) (*domain.ApplyResult, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ApplyResult), args.Error(1)
}

// Get mocks the Get method of CustomerUseCase.
func (m *MockCustomerUseCase) Get(ctx context.Context, customerID int64) (*domain.Customer, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}
