// Package domain defines customers, the order.created events they receive and the
// outcome of applying one.
package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/allisson/orderflow/internal/errors"
)

// Customer is a customer record with its running order count.
type Customer struct {
	ID          int64
	Name        string
	Address     string
	OrdersCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProcessedOrderEvent records that an order.created event was applied. EventID is unique.
type ProcessedOrderEvent struct {
	ID         int64
	EventID    string
	CustomerID int64
	CreatedAt  time.Time
}

// OrderCreatedEvent is the order.created message body. Fields other than EventID and
// CustomerID are informational.
type OrderCreatedEvent struct {
	EventID     string `json:"event_id"`
	CustomerID  int64  `json:"customer_id"`
	OrderID     int64  `json:"id"`
	ProductName string `json:"product_name"`
	OccurredAt  string `json:"occurred_at"`
}

// ParseOrderCreatedEvent decodes a message body. Bodies that are not a JSON object, or whose
// fields have the wrong types, return ErrMalformedEvent.
func ParseOrderCreatedEvent(body []byte) (*OrderCreatedEvent, error) {
	var event OrderCreatedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, errors.Wrapf(ErrMalformedEvent, "decode order.created: %v", err)
	}
	event.EventID = strings.TrimSpace(event.EventID)
	return &event, nil
}

// ApplyKind tells whether an event changed state.
type ApplyKind string

const (
	ApplyKindApplied ApplyKind = "applied"
	ApplyKindSkipped ApplyKind = "skipped"
)

// SkipReason explains why an event was not applied.
type SkipReason string

const (
	SkipReasonMissingEventID    SkipReason = "missing_event_id"
	SkipReasonMissingCustomerID SkipReason = "missing_customer_id"
	SkipReasonCustomerNotFound  SkipReason = "customer_not_found"
	SkipReasonAlreadyProcessed  SkipReason = "already_processed"
)

// ApplyResult is the outcome of applying an order.created event. Applied results carry
// Customer and ProcessedEvent; skipped results carry Reason.
type ApplyResult struct {
	Kind           ApplyKind
	Customer       *Customer
	ProcessedEvent *ProcessedOrderEvent
	Reason         SkipReason
}

// Applied builds an applied result.
func Applied(customer *Customer, event *ProcessedOrderEvent) *ApplyResult {
	return &ApplyResult{Kind: ApplyKindApplied, Customer: customer, ProcessedEvent: event}
}

// Skipped builds a skipped result.
func Skipped(reason SkipReason) *ApplyResult {
	return &ApplyResult{Kind: ApplyKindSkipped, Reason: reason}
}

// IsApplied reports whether the event changed state.
func (r *ApplyResult) IsApplied() bool {
	return r.Kind == ApplyKindApplied
}
