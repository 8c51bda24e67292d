package usecase

import (
	"context"
	"time"

	"github.com/allisson/orderflow/internal/metrics"
	"github.com/allisson/orderflow/internal/order/domain"
)

const metricsDomain = "orders"

// orderUseCaseWithMetrics decorates OrderUseCase with metrics instrumentation.
type orderUseCaseWithMetrics struct {
	next    OrderUseCase
	metrics metrics.BusinessMetrics
}

// NewOrderUseCaseWithMetrics wraps an OrderUseCase with metrics recording.
func NewOrderUseCaseWithMetrics(useCase OrderUseCase, m metrics.BusinessMetrics) OrderUseCase {
	return &orderUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (o *orderUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	o.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	o.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// Create records metrics for order creation. Replays of an idempotency key are counted
// separately from new orders.
func (o *orderUseCaseWithMetrics) Create(
	ctx context.Context,
	input domain.CreateOrderInput,
	idempotencyKey string,
) (*domain.CreateOrderResult, error) {
	start := time.Now()
	result, err := o.next.Create(ctx, input, idempotencyKey)

	operation := "order_create"
	if err == nil && !result.Created {
		operation = "order_create_replayed"
	}
	o.record(ctx, operation, start, err)

	return result, err
}

// Get records metrics for order lookups.
func (o *orderUseCaseWithMetrics) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	start := time.Now()
	order, err := o.next.Get(ctx, orderID)
	o.record(ctx, "order_get", start, err)
	return order, err
}

// List records metrics for order listings.
func (o *orderUseCaseWithMetrics) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	start := time.Now()
	orders, err := o.next.List(ctx, filter)
	o.record(ctx, "order_list", start, err)
	return orders, err
}
