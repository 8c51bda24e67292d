package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/allisson/orderflow/internal/metrics"
	"github.com/allisson/orderflow/internal/order/domain"
	outboxDomain "github.com/allisson/orderflow/internal/outbox/domain"
)

// mockTxManager runs fn directly unless an error is configured for WithTx.
type mockTxManager struct {
	mock.Mock
}

func (m *mockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Get(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

type mockIdempotencyKeyRepository struct {
	mock.Mock
}

func (m *mockIdempotencyKeyRepository) Create(ctx context.Context, key *domain.IdempotencyKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockIdempotencyKeyRepository) Get(ctx context.Context, key string) (*domain.IdempotencyKey, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdempotencyKey), args.Error(1)
}

type mockOutboxEventRepository struct {
	mock.Mock
}

func (m *mockOutboxEventRepository) Create(ctx context.Context, event *outboxDomain.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type mockCustomerValidator struct {
	mock.Mock
}

func (m *mockCustomerValidator) ValidateCustomer(ctx context.Context, customerID int64) (*domain.CustomerMetadata, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomerMetadata), args.Error(1)
}

type mockOrderUseCase struct {
	mock.Mock
}

func (m *mockOrderUseCase) Create(
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

func (m *mockOrderUseCase) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderUseCase) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

var (
	_ OrderRepository          = (*mockOrderRepository)(nil)
	_ IdempotencyKeyRepository = (*mockIdempotencyKeyRepository)(nil)
	_ OutboxEventRepository    = (*mockOutboxEventRepository)(nil)
	_ CustomerValidator        = (*mockCustomerValidator)(nil)
	_ OrderUseCase             = (*mockOrderUseCase)(nil)
	_ metrics.BusinessMetrics  = (*mockBusinessMetrics)(nil)
)
