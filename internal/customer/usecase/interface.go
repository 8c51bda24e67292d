// Package usecase applies order.created events to customers exactly once and serves
// customer lookups.
package usecase

import (
	"context"

	"github.com/allisson/orderflow/internal/customer/domain"
)

// CustomerRepository defines the interface for Customer persistence operations.
type CustomerRepository interface {
	Get(ctx context.Context, customerID int64) (*domain.Customer, error)
	IncrementOrdersCount(ctx context.Context, customerID int64) error
}

// ProcessedOrderEventRepository defines the interface for ProcessedOrderEvent persistence operations.
type ProcessedOrderEventRepository interface {
	Create(ctx context.Context, event *domain.ProcessedOrderEvent) error
}

// CustomerUseCase defines the interface for customer business logic.
type CustomerUseCase interface {
	// Apply increments the customer's order count once per event id. Events that cannot or
	// need not be applied return a skipped result and a nil error.
	Apply(ctx context.Context, event domain.OrderCreatedEvent) (*domain.ApplyResult, error)
	Get(ctx context.Context, customerID int64) (*domain.Customer, error)
}
