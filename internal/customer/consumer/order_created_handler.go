// Package consumer turns order.created deliveries into customer updates.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/allisson/orderflow/internal/customer/domain"
	customerUseCase "github.com/allisson/orderflow/internal/customer/usecase"
	"github.com/allisson/orderflow/internal/messaging/rabbitmq"
)

// OrderCreatedHandler applies order.created message bodies through the customer use case.
type OrderCreatedHandler struct {
	customerUseCase customerUseCase.CustomerUseCase
	logger          *slog.Logger
}

// NewOrderCreatedHandler creates a new OrderCreatedHandler.
func NewOrderCreatedHandler(
	customerUseCase customerUseCase.CustomerUseCase,
	logger *slog.Logger,
) *OrderCreatedHandler {
	return &OrderCreatedHandler{
		customerUseCase: customerUseCase,
		logger:          logger,
	}
}

// Handle parses body and applies it. Bodies that do not decode are reported as
// rabbitmq.ErrMalformedMessage. Skipped events return nil so the delivery is acknowledged.
func (h *OrderCreatedHandler) Handle(ctx context.Context, body []byte) error {
	event, err := domain.ParseOrderCreatedEvent(body)
	if err != nil {
		h.logger.Warn("rejecting malformed order.created message",
			slog.Int("body_size", len(body)),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: %w", rabbitmq.ErrMalformedMessage, err)
	}

	result, err := h.customerUseCase.Apply(ctx, *event)
	if err != nil {
		h.logger.Error("failed to apply order.created event",
			slog.String("event_id", event.EventID),
			slog.Int64("customer_id", event.CustomerID),
			slog.Any("error", err),
		)
		return err
	}

	if !result.IsApplied() {
		h.logger.Info("order.created event skipped",
			slog.String("event_id", event.EventID),
			slog.Int64("customer_id", event.CustomerID),
			slog.String("reason", string(result.Reason)),
		)
		return nil
	}

	h.logger.Info("order.created event applied",
		slog.String("event_id", event.EventID),
		slog.Int64("customer_id", event.CustomerID),
		slog.Int64("order_id", event.OrderID),
		slog.Int("orders_count", result.Customer.OrdersCount),
	)
	return nil
}

var _ rabbitmq.Handler = (*OrderCreatedHandler)(nil)
