package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// MessageConsumer consumes until its context is cancelled.
type MessageConsumer interface {
	Run(ctx context.Context) error
}

// RunConsumer runs the order.created consumer and the metrics server (when not nil)
// together until SIGINT/SIGTERM.
func RunConsumer(
	ctx context.Context,
	logger *slog.Logger,
	shutdownTimeout time.Duration,
	consumer MessageConsumer,
	metrics Service,
) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return runGroup(ctx, logger, shutdownTimeout, []Service{metrics}, []Worker{consumer.Run})
}
