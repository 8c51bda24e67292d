// Package usecase relays outbox events to the message broker.
package usecase

import (
	"context"
	"time"

	"github.com/allisson/orderflow/internal/outbox/domain"
)

// OutboxEventRepository defines outbox event persistence used by the relay.
type OutboxEventRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
	ClaimPending(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	Update(ctx context.Context, event *domain.OutboxEvent) error
	ResetFailed(ctx context.Context, limit int) (int64, error)
	ResetStuckProcessing(ctx context.Context, olderThan time.Duration, limit int) (int64, error)
	CountByStatus(ctx context.Context) (map[domain.OutboxEventStatus]int64, error)
}

// Publisher delivers one message to the broker under routingKey.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
}

// RelayUseCase moves outbox events to the broker and exposes operator actions.
type RelayUseCase interface {
	// RunOnce claims one batch of pending events and publishes each of them. It returns how
	// many events reached a final state (processed or failed).
	RunOnce(ctx context.Context) (int, error)
	// ReapStuck returns events that stayed in processing longer than olderThan to pending.
	ReapStuck(ctx context.Context, olderThan time.Duration, limit int) (int64, error)
	// ResetFailed returns failed events to pending so a later run retries them.
	ResetFailed(ctx context.Context, limit int) (int64, error)
	// Stats counts events per status.
	Stats(ctx context.Context) (map[domain.OutboxEventStatus]int64, error)
}
