package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BreakerMetrics counts circuit breaker state transitions per dependency.
type BreakerMetrics interface {
	RecordStateChange(ctx context.Context, name, from, to string)
}

type breakerMetrics struct {
	transitions metric.Int64Counter
}

// NewBreakerMetrics creates the <namespace>_circuit_breaker_transitions_total counter.
func NewBreakerMetrics(meterProvider metric.MeterProvider, namespace string) (BreakerMetrics, error) {
	meter := meterProvider.Meter(namespace)

	transitions, err := meter.Int64Counter(
		fmt.Sprintf("%s_circuit_breaker_transitions_total", namespace),
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create breaker transition counter: %w", err)
	}

	return &breakerMetrics{transitions: transitions}, nil
}

func (b *breakerMetrics) RecordStateChange(ctx context.Context, name, from, to string) {
	b.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("breaker", name),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// NoOpBreakerMetrics discards transitions.
type NoOpBreakerMetrics struct{}

// NewNoOpBreakerMetrics creates a no-op BreakerMetrics implementation.
func NewNoOpBreakerMetrics() BreakerMetrics {
	return &NoOpBreakerMetrics{}
}

func (n *NoOpBreakerMetrics) RecordStateChange(ctx context.Context, name, from, to string) {}
