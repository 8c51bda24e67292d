package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/allisson/orderflow/internal/metrics"
	"github.com/allisson/orderflow/internal/outbox/domain"
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

type mockOutboxEventRepository struct {
	mock.Mock
}

func (m *mockOutboxEventRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockOutboxEventRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OutboxEvent), args.Error(1)
}

func (m *mockOutboxEventRepository) Update(ctx context.Context, event *domain.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockOutboxEventRepository) ResetFailed(ctx context.Context, limit int) (int64, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOutboxEventRepository) ResetStuckProcessing(
	ctx context.Context,
	olderThan time.Duration,
	limit int,
) (int64, error) {
	args := m.Called(ctx, olderThan, limit)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOutboxEventRepository) CountByStatus(
	ctx context.Context,
) (map[domain.OutboxEventStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.OutboxEventStatus]int64), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	args := m.Called(ctx, routingKey, payload)
	return args.Error(0)
}

type mockRelayUseCase struct {
	mock.Mock
}

func (m *mockRelayUseCase) RunOnce(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockRelayUseCase) ReapStuck(ctx context.Context, olderThan time.Duration, limit int) (int64, error) {
	args := m.Called(ctx, olderThan, limit)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRelayUseCase) ResetFailed(ctx context.Context, limit int) (int64, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRelayUseCase) Stats(ctx context.Context) (map[domain.OutboxEventStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.OutboxEventStatus]int64), args.Error(1)
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
	_ OutboxEventRepository   = (*mockOutboxEventRepository)(nil)
	_ Publisher               = (*mockPublisher)(nil)
	_ RelayUseCase            = (*mockRelayUseCase)(nil)
	_ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)
)
