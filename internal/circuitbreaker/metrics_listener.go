package circuitbreaker

import (
	"context"

	"github.com/allisson/orderflow/internal/metrics"
)

// MetricsListener forwards transitions to BreakerMetrics.
type MetricsListener struct {
	metrics metrics.BreakerMetrics
}

// NewMetricsListener creates a MetricsListener.
func NewMetricsListener(m metrics.BreakerMetrics) *MetricsListener {
	return &MetricsListener{metrics: m}
}

func (l *MetricsListener) OnStateChange(name string, from, to State) {
	l.metrics.RecordStateChange(context.Background(), name, string(from), string(to))
}
