package usecase

import (
	"context"
	"time"

	"github.com/allisson/orderflow/internal/customer/domain"
	"github.com/allisson/orderflow/internal/metrics"
)

const metricsDomain = "customers"

// customerUseCaseWithMetrics decorates CustomerUseCase with metrics instrumentation.
type customerUseCaseWithMetrics struct {
	next    CustomerUseCase
	metrics metrics.BusinessMetrics
}

// NewCustomerUseCaseWithMetrics wraps a CustomerUseCase with metrics recording.
func NewCustomerUseCaseWithMetrics(useCase CustomerUseCase, m metrics.BusinessMetrics) CustomerUseCase {
	return &customerUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (c *customerUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	c.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	c.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// Apply records metrics for event application. Skipped events are counted as
// "order_event_skipped".
func (c *customerUseCaseWithMetrics) Apply(
	ctx context.Context,
	event domain.OrderCreatedEvent,
) (*domain.ApplyResult, error) {
	start := time.Now()
	result, err := c.next.Apply(ctx, event)

	operation := "order_event_apply"
	if err == nil && !result.IsApplied() {
		operation = "order_event_skipped"
	}
	c.record(ctx, operation, start, err)

	return result, err
}

// Get records metrics for customer lookups.
func (c *customerUseCaseWithMetrics) Get(ctx context.Context, customerID int64) (*domain.Customer, error) {
	start := time.Now()
	customer, err := c.next.Get(ctx, customerID)
	c.record(ctx, "customer_get", start, err)
	return customer, err
}
