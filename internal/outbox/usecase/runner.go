package usecase

import (
	"context"
	"log/slog"
	"time"
)

// Runner drives a RelayUseCase on tickers until its context is cancelled.
type Runner struct {
	relay  RelayUseCase
	config Config
	logger *slog.Logger
}

// NewRunner creates a Runner. relay is usually the metrics-decorated use case.
func NewRunner(relay RelayUseCase, config Config, logger *slog.Logger) *Runner {
	return &Runner{
		relay:  relay,
		config: config,
		logger: logger,
	}
}

// Start runs the relay immediately and then every Interval. Run errors are logged and the
// loop continues. It returns ctx.Err() once the context is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	r.logger.Info("starting outbox relay",
		slog.Duration("interval", r.config.Interval),
		slog.Int("batch_size", r.config.BatchSize),
	)

	return r.loop(ctx, r.config.Interval, func(ctx context.Context) {
		processed, err := r.relay.RunOnce(ctx)
		if err != nil {
			r.logger.Error("outbox relay run failed", slog.Int("processed", processed), slog.Any("error", err))
			return
		}
		if processed > 0 {
			r.logger.Info("outbox relay run finished", slog.Int("processed", processed))
		}
	})
}

// StartReaper resets stuck processing events every ReaperInterval. A non-positive interval
// disables the reaper and the call blocks until ctx is done.
func (r *Runner) StartReaper(ctx context.Context) error {
	if r.config.ReaperInterval <= 0 {
		r.logger.Info("outbox reaper disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	r.logger.Info("starting outbox reaper",
		slog.Duration("interval", r.config.ReaperInterval),
		slog.Duration("stuck_threshold", r.config.StuckThreshold),
	)

	return r.loop(ctx, r.config.ReaperInterval, func(ctx context.Context) {
		if _, err := r.relay.ReapStuck(ctx, r.config.StuckThreshold, r.config.BatchSize); err != nil {
			r.logger.Error("outbox reaper run failed", slog.Any("error", err))
		}
	})
}

func (r *Runner) loop(ctx context.Context, interval time.Duration, run func(ctx context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		run(ctx)

		select {
		case <-ctx.Done():
			r.logger.Info("stopping outbox loop")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
