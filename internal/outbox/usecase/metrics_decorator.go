package usecase

import (
	"context"
	"time"

	"github.com/allisson/orderflow/internal/metrics"
	"github.com/allisson/orderflow/internal/outbox/domain"
)

const metricsDomain = "outbox"

// relayUseCaseWithMetrics decorates RelayUseCase with metrics instrumentation.
type relayUseCaseWithMetrics struct {
	next    RelayUseCase
	metrics metrics.BusinessMetrics
}

// NewRelayUseCaseWithMetrics wraps a RelayUseCase with metrics recording.
func NewRelayUseCaseWithMetrics(useCase RelayUseCase, m metrics.BusinessMetrics) RelayUseCase {
	return &relayUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (r *relayUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	r.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	r.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// RunOnce records metrics for relay runs.
func (r *relayUseCaseWithMetrics) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	processed, err := r.next.RunOnce(ctx)
	r.record(ctx, "outbox_relay_run", start, err)
	return processed, err
}

// ReapStuck records metrics for reaper runs.
func (r *relayUseCaseWithMetrics) ReapStuck(ctx context.Context, olderThan time.Duration, limit int) (int64, error) {
	start := time.Now()
	count, err := r.next.ReapStuck(ctx, olderThan, limit)
	r.record(ctx, "outbox_reap_stuck", start, err)
	return count, err
}

// ResetFailed records metrics for failed-event resets.
func (r *relayUseCaseWithMetrics) ResetFailed(ctx context.Context, limit int) (int64, error) {
	start := time.Now()
	count, err := r.next.ResetFailed(ctx, limit)
	r.record(ctx, "outbox_reset_failed", start, err)
	return count, err
}

// Stats is not instrumented; it backs the backlog gauge and would count every scrape.
func (r *relayUseCaseWithMetrics) Stats(ctx context.Context) (map[domain.OutboxEventStatus]int64, error) {
	return r.next.Stats(ctx)
}
