package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/allisson/orderflow/internal/outbox/domain"
	outboxUseCase "github.com/allisson/orderflow/internal/outbox/usecase"
)

// RunOutboxRetryFailed returns up to limit failed outbox events to pending so the relay
// publishes them again.
func RunOutboxRetryFailed(
	ctx context.Context,
	relay outboxUseCase.RelayUseCase,
	logger *slog.Logger,
	writer io.Writer,
	limit int,
	format string,
) error {
	if limit <= 0 {
		return fmt.Errorf("limit must be a positive number, got: %d", limit)
	}
	if err := validateFormat(format); err != nil {
		return err
	}

	count, err := relay.ResetFailed(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to reset failed outbox events: %w", err)
	}

	logger.Info("failed outbox events reset", slog.Int64("count", count), slog.Int("limit", limit))

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"count": count,
			"limit": limit,
		})
	}

	_, err = fmt.Fprintf(writer, "Reset %d failed outbox event(s) to pending\n", count)
	return err
}

// RunOutboxReapStuck returns up to limit events stuck in processing for longer than
// olderThan to pending.
func RunOutboxReapStuck(
	ctx context.Context,
	relay outboxUseCase.RelayUseCase,
	logger *slog.Logger,
	writer io.Writer,
	olderThan time.Duration,
	limit int,
	format string,
) error {
	if olderThan <= 0 {
		return fmt.Errorf("older-than must be a positive duration, got: %s", olderThan)
	}
	if limit <= 0 {
		return fmt.Errorf("limit must be a positive number, got: %d", limit)
	}
	if err := validateFormat(format); err != nil {
		return err
	}

	count, err := relay.ReapStuck(ctx, olderThan, limit)
	if err != nil {
		return fmt.Errorf("failed to reap stuck outbox events: %w", err)
	}

	logger.Info("stuck outbox events reset",
		slog.Int64("count", count),
		slog.Duration("older_than", olderThan),
	)

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"count":      count,
			"older_than": olderThan.String(),
			"limit":      limit,
		})
	}

	_, err = fmt.Fprintf(writer, "Reset %d outbox event(s) stuck in processing for more than %s\n", count, olderThan)
	return err
}

// RunOutboxStats prints the number of outbox events per status.
func RunOutboxStats(
	ctx context.Context,
	relay outboxUseCase.RelayUseCase,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	counts, err := relay.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to count outbox events: %w", err)
	}

	if format == "json" {
		result := make(map[string]int64, len(domain.Statuses))
		for _, status := range domain.Statuses {
			result[string(status)] = counts[status]
		}
		return writeJSON(writer, result)
	}

	for _, status := range domain.Statuses {
		if _, err := fmt.Fprintf(writer, "%-10s %d\n", status, counts[status]); err != nil {
			return err
		}
	}
	return nil
}
