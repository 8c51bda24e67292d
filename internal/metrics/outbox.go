package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OutboxCounter returns the number of outbox events per status.
type OutboxCounter func(ctx context.Context) (map[string]int64, error)

// RegisterOutboxBacklog registers an observable gauge reporting the outbox events per
// status at scrape time. Errors from the counter skip that observation.
func RegisterOutboxBacklog(
	meterProvider metric.MeterProvider,
	namespace string,
	counter OutboxCounter,
) (metric.Registration, error) {
	meter := meterProvider.Meter(namespace)

	gauge, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_outbox_events", namespace),
		metric.WithDescription("Outbox events by status"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create outbox gauge: %w", err)
	}

	return meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		counts, err := counter(ctx)
		if err != nil {
			return nil
		}
		for status, count := range counts {
			o.ObserveInt64(gauge, count, metric.WithAttributes(attribute.String("status", status)))
		}
		return nil
	}, gauge)
}
