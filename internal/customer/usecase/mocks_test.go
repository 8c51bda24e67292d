package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/allisson/orderflow/internal/customer/domain"
	"github.com/allisson/orderflow/internal/metrics"
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

type mockCustomerRepository struct {
	mock.Mock
}

func (m *mockCustomerRepository) Get(ctx context.Context, customerID int64) (*domain.Customer, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *mockCustomerRepository) IncrementOrdersCount(ctx context.Context, customerID int64) error {
	args := m.Called(ctx, customerID)
	return args.Error(0)
}

type mockProcessedOrderEventRepository struct {
	mock.Mock
}

func (m *mockProcessedOrderEventRepository) Create(ctx context.Context, event *domain.ProcessedOrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type mockCustomerUseCase struct {
	mock.Mock
}

func (m *mockCustomerUseCase) Apply(ctx context.Context, event domain.OrderCreatedEvent) (*domain.ApplyResult, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ApplyResult), args.Error(1)
}

func (m *mockCustomerUseCase) Get(ctx context.Context, customerID int64) (*domain.Customer, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
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
	_ CustomerRepository            = (*mockCustomerRepository)(nil)
	_ ProcessedOrderEventRepository = (*mockProcessedOrderEventRepository)(nil)
	_ CustomerUseCase               = (*mockCustomerUseCase)(nil)
	_ metrics.BusinessMetrics       = (*mockBusinessMetrics)(nil)
)
