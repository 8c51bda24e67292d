// Package usecase implements order placement with idempotency keys and a transactional outbox.
package usecase

import (
	"context"

	"github.com/allisson/orderflow/internal/order/domain"
	outboxDomain "github.com/allisson/orderflow/internal/outbox/domain"
)

// OrderRepository defines the interface for Order persistence operations.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, orderID int64) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error)
}

// IdempotencyKeyRepository defines the interface for IdempotencyKey persistence operations.
type IdempotencyKeyRepository interface {
	Create(ctx context.Context, key *domain.IdempotencyKey) error
	Get(ctx context.Context, key string) (*domain.IdempotencyKey, error)
}

// OutboxEventRepository is the write side of the outbox used when an order is placed.
type OutboxEventRepository interface {
	Create(ctx context.Context, event *outboxDomain.OutboxEvent) error
}

// CustomerValidator checks that a customer exists before an order is placed.
type CustomerValidator interface {
	ValidateCustomer(ctx context.Context, customerID int64) (*domain.CustomerMetadata, error)
}

// OrderUseCase defines the interface for order business logic.
type OrderUseCase interface {
	// Create places an order. With a non-empty idempotencyKey that was already used, the
	// order created for it is returned with Created set to false and nothing is written.
	Create(ctx context.Context, input domain.CreateOrderInput, idempotencyKey string) (*domain.CreateOrderResult, error)
	Get(ctx context.Context, orderID int64) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error)
}
