// Package domain defines the outbox event record and its status machine.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orderflow/internal/errors"
)

// OutboxEventStatus represents the status of an outbox event
type OutboxEventStatus string

const (
	OutboxEventStatusPending    OutboxEventStatus = "pending"
	OutboxEventStatusProcessing OutboxEventStatus = "processing"
	OutboxEventStatusProcessed  OutboxEventStatus = "processed"
	OutboxEventStatusFailed     OutboxEventStatus = "failed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []OutboxEventStatus{
	OutboxEventStatusPending,
	OutboxEventStatusProcessing,
	OutboxEventStatusProcessed,
	OutboxEventStatusFailed,
}

// CanTransitionTo reports whether the relay may move an event from s to next.
// processing -> pending is the stuck-event reaper; failed -> pending is an operator retry.
func (s OutboxEventStatus) CanTransitionTo(next OutboxEventStatus) bool {
	switch s {
	case OutboxEventStatusPending:
		return next == OutboxEventStatusProcessing
	case OutboxEventStatusProcessing:
		return next == OutboxEventStatusProcessed ||
			next == OutboxEventStatusFailed ||
			next == OutboxEventStatusPending
	case OutboxEventStatusFailed:
		return next == OutboxEventStatusPending
	}
	return false
}

// Predecessors returns the statuses an event may move to s from.
func (s OutboxEventStatus) Predecessors() []OutboxEventStatus {
	var from []OutboxEventStatus
	for _, status := range Statuses {
		if status.CanTransitionTo(s) {
			from = append(from, status)
		}
	}
	return from
}

// Outbox errors.
var (
	// ErrStaleEvent means the stored row no longer has a status the update may move from,
	// for example after the reaper handed a slow relay's claim to another relay.
	ErrStaleEvent = errors.Wrap(errors.ErrConflict, "outbox event was changed by another worker")

	ErrInvalidStatusTransition = errors.Wrap(errors.ErrConflict, "invalid outbox status transition")
	ErrInvalidPayload          = errors.Wrap(errors.ErrInvalidInput, "outbox payload must be a JSON object")
)

// OutboxEvent represents an event in the transactional outbox pattern
type OutboxEvent struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       string
	Status        OutboxEventStatus
	ErrorMessage  *string
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEvent creates a pending event. The payload must be a JSON object.
func NewOutboxEvent(aggregateType, aggregateID, eventType string, payload []byte) (*OutboxEvent, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return nil, ErrInvalidPayload
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		ID:            id,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       string(payload),
		Status:        OutboxEventStatusPending,
	}, nil
}

func (e *OutboxEvent) transition(next OutboxEventStatus) error {
	if !e.Status.CanTransitionTo(next) {
		return errors.Wrapf(ErrInvalidStatusTransition, "%s -> %s", e.Status, next)
	}
	e.Status = next
	return nil
}

// MarkProcessing claims the event for publishing.
func (e *OutboxEvent) MarkProcessing() error {
	return e.transition(OutboxEventStatusProcessing)
}

// MarkProcessed records a successful publish and clears the last error.
func (e *OutboxEvent) MarkProcessed(at time.Time) error {
	if err := e.transition(OutboxEventStatusProcessed); err != nil {
		return err
	}
	e.ProcessedAt = &at
	e.ErrorMessage = nil
	return nil
}

// MarkFailed records a failed publish.
func (e *OutboxEvent) MarkFailed(message string) error {
	if err := e.transition(OutboxEventStatusFailed); err != nil {
		return err
	}
	e.ErrorMessage = &message
	return nil
}

// ResetToPending makes a failed or stuck event selectable again. The last error is kept.
func (e *OutboxEvent) ResetToPending() error {
	return e.transition(OutboxEventStatusPending)
}
