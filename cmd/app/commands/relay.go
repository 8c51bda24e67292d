package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// RelayRunner drives the outbox relay and the stuck-event reaper.
type RelayRunner interface {
	Start(ctx context.Context) error
	StartReaper(ctx context.Context) error
}

// RunRelay runs the relay loop, the reaper loop and the metrics server (when not nil)
// together until SIGINT/SIGTERM.
func RunRelay(
	ctx context.Context,
	logger *slog.Logger,
	shutdownTimeout time.Duration,
	runner RelayRunner,
	metrics Service,
) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return runGroup(ctx, logger, shutdownTimeout, []Service{metrics}, []Worker{runner.Start, runner.StartReaper})
}
