package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// Service is a long-running component with a graceful stop, such as an HTTP server.
type Service interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Worker runs until its context is cancelled.
type Worker func(ctx context.Context) error

// RunServer serves api, and metrics when not nil, until SIGINT/SIGTERM or until one of them
// fails. Both are then shut down within shutdownTimeout.
func RunServer(
	ctx context.Context,
	logger *slog.Logger,
	shutdownTimeout time.Duration,
	api Service,
	metrics Service,
) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return runGroup(ctx, logger, shutdownTimeout, []Service{api, metrics}, nil)
}

// runGroup starts every non-nil service and worker under one errgroup. The first failure or
// the cancellation of ctx stops the others. Workers returning context.Canceled are treated
// as a clean stop.
func runGroup(
	ctx context.Context,
	logger *slog.Logger,
	shutdownTimeout time.Duration,
	services []Service,
	workers []Worker,
) error {
	active := make([]Service, 0, len(services))
	for _, service := range services {
		if service != nil {
			active = append(active, service)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, service := range active {
		g.Go(func() error {
			return service.Start(gctx)
		})
	}

	for _, worker := range workers {
		g.Go(func() error {
			if err := worker(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		var shutdownErrors []error
		for _, service := range active {
			if err := service.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("shutdown: %w", err))
			}
		}
		return errors.Join(shutdownErrors...)
	})

	return g.Wait()
}
