package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/allisson/orderflow/internal/database"
	"github.com/allisson/orderflow/internal/outbox/domain"
)

// Config holds relay configuration.
type Config struct {
	Interval       time.Duration
	BatchSize      int
	StuckThreshold time.Duration
	ReaperInterval time.Duration
}

type relayUseCase struct {
	config     Config
	txManager  database.TxManager
	outboxRepo OutboxEventRepository
	publisher  Publisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewRelayUseCase creates the outbox relay.
func NewRelayUseCase(
	config Config,
	txManager database.TxManager,
	outboxRepo OutboxEventRepository,
	publisher Publisher,
	logger *slog.Logger,
) RelayUseCase {
	return &relayUseCase{
		config:     config,
		txManager:  txManager,
		outboxRepo: outboxRepo,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// errInterrupted reports a publish that was cut short by the batch context.
var errInterrupted = errors.New("publish interrupted")

// RunOnce claims pending events in a short transaction that marks them processing, then
// publishes each one outside the transaction. A failed publish marks only that event failed.
// Once ctx is done no further event is attempted and the unpublished rest of the batch is put
// back to pending.
func (r *relayUseCase) RunOnce(ctx context.Context) (int, error) {
	events, err := r.claim(ctx)
	if err != nil {
		return 0, err
	}

	if len(events) == 0 {
		return 0, nil
	}

	r.logger.Debug("relaying outbox events", slog.Int("count", len(events)))

	var finalized int
	var errs []error
	for i, event := range events {
		if ctx.Err() != nil {
			r.release(ctx, events[i:])
			break
		}

		err := r.relay(ctx, event)
		switch {
		case errors.Is(err, errInterrupted):
			r.release(ctx, events[i:])
			return finalized, errors.Join(errs...)
		case errors.Is(err, domain.ErrStaleEvent):
			continue
		case err != nil:
			errs = append(errs, err)
			continue
		}
		finalized++
	}

	return finalized, errors.Join(errs...)
}

func (r *relayUseCase) claim(ctx context.Context) ([]*domain.OutboxEvent, error) {
	var claimed []*domain.OutboxEvent

	err := r.txManager.WithTx(ctx, func(ctx context.Context) error {
		events, err := r.outboxRepo.ClaimPending(ctx, r.config.BatchSize)
		if err != nil {
			return err
		}

		for _, event := range events {
			if err := event.MarkProcessing(); err != nil {
				return err
			}
			if err := r.outboxRepo.Update(ctx, event); err != nil {
				return err
			}
		}

		claimed = events
		return nil
	})
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

// relay publishes one claimed event and records the outcome. The returned error is a
// persistence failure or errInterrupted; publish failures are recorded on the event instead.
func (r *relayUseCase) relay(ctx context.Context, event *domain.OutboxEvent) error {
	logger := r.logger.With(
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.EventType),
	)

	publishErr := r.publish(ctx, event)
	if publishErr != nil && ctx.Err() != nil {
		logger.Info("outbox event publish interrupted", slog.Any("error", publishErr))
		return errInterrupted
	}

	if publishErr != nil {
		logger.Warn("failed to publish outbox event", slog.Any("error", publishErr))
		if err := event.MarkFailed(publishErr.Error()); err != nil {
			return err
		}
	} else {
		if err := event.MarkProcessed(r.now().UTC()); err != nil {
			return err
		}
	}

	// The batch may have been cancelled after a successful publish; the outcome must still be stored.
	if err := r.outboxRepo.Update(context.WithoutCancel(ctx), event); err != nil {
		if errors.Is(err, domain.ErrStaleEvent) {
			logger.Warn("outbox event claim was lost before its outcome was recorded",
				slog.String("status", string(event.Status)),
			)
			return err
		}
		logger.Error("failed to record outbox event outcome",
			slog.String("status", string(event.Status)),
			slog.Any("error", err),
		)
		return err
	}

	if publishErr == nil {
		logger.Debug("outbox event published")
	}
	return nil
}

// release puts claimed events that were never published back to pending. The store is written
// with a detached context because release runs after ctx is done.
func (r *relayUseCase) release(ctx context.Context, events []*domain.OutboxEvent) {
	storeCtx := context.WithoutCancel(ctx)

	var released int
	for _, event := range events {
		if err := event.ResetToPending(); err != nil {
			continue
		}
		if err := r.outboxRepo.Update(storeCtx, event); err != nil {
			if !errors.Is(err, domain.ErrStaleEvent) {
				r.logger.Error("failed to release outbox event",
					slog.String("event_id", event.ID.String()),
					slog.Any("error", err),
				)
			}
			continue
		}
		released++
	}

	r.logger.Info("released unpublished outbox events", slog.Int("count", released))
}

func (r *relayUseCase) publish(ctx context.Context, event *domain.OutboxEvent) error {
	payload, err := event.WirePayload()
	if err != nil {
		return err
	}
	return r.publisher.Publish(ctx, domain.RoutingKey(event.EventType), payload)
}

func (r *relayUseCase) ReapStuck(ctx context.Context, olderThan time.Duration, limit int) (int64, error) {
	count, err := r.outboxRepo.ResetStuckProcessing(ctx, olderThan, limit)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		r.logger.Warn("reclaimed stuck outbox events",
			slog.Int64("count", count),
			slog.Duration("older_than", olderThan),
		)
	}
	return count, nil
}

func (r *relayUseCase) ResetFailed(ctx context.Context, limit int) (int64, error) {
	count, err := r.outboxRepo.ResetFailed(ctx, limit)
	if err != nil {
		return 0, err
	}
	r.logger.Info("reset failed outbox events", slog.Int64("count", count))
	return count, nil
}

func (r *relayUseCase) Stats(ctx context.Context) (map[domain.OutboxEventStatus]int64, error) {
	return r.outboxRepo.CountByStatus(ctx)
}
