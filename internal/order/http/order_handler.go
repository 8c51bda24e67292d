// Package http provides HTTP handlers for placing and reading orders.
package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/orderflow/internal/errors"
	"github.com/allisson/orderflow/internal/httputil"
	"github.com/allisson/orderflow/internal/order/domain"
	"github.com/allisson/orderflow/internal/order/http/dto"
	orderUseCase "github.com/allisson/orderflow/internal/order/usecase"
)

// IdempotencyKeyHeader is the request header carrying the client's idempotency key.
const IdempotencyKeyHeader = "Idempotency-Key"

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	orderUseCase orderUseCase.OrderUseCase
	logger       *slog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orderUseCase orderUseCase.OrderUseCase, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orderUseCase: orderUseCase,
		logger:       logger,
	}
}

// CreateHandler places an order.
// POST /v1/orders with an optional Idempotency-Key header.
// Returns 201 Created for a new order and 200 OK when the key was already used.
func (h *OrderHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	idempotencyKey := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))

	result, err := h.orderUseCase.Create(c.Request.Context(), req.ToInput(), idempotencyKey)
	if err != nil {
		h.handleCreateError(c, err)
		return
	}

	status := http.StatusCreated
	if !result.Created {
		status = http.StatusOK
	}
	c.JSON(status, dto.MapOrderToResponse(result.Order))
}

// handleCreateError renders customer-service failures with their own error codes.
func (h *OrderHandler) handleCreateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrCustomerNotFound):
		httputil.HandleErrorCodeGin(c, http.StatusNotFound, "customer_not_found", err, h.logger)
	case errors.Is(err, domain.ErrCustomerUnauthorized):
		httputil.HandleErrorCodeGin(c, http.StatusUnauthorized, "unauthorized", err, h.logger)
	case errors.Is(err, domain.ErrCustomerServiceUnavailable):
		httputil.HandleErrorCodeGin(c, http.StatusServiceUnavailable, "service_unavailable", err, h.logger)
	case errors.Is(err, domain.ErrProductNameTaken), errors.Is(err, apperrors.ErrInvalidInput):
		httputil.HandleValidationErrorGin(c, err, h.logger)
	default:
		httputil.HandleErrorGin(c, err, h.logger)
	}
}

// GetHandler returns one order.
// GET /v1/orders/:id
func (h *OrderHandler) GetHandler(c *gin.Context) {
	orderID, err := httputil.ParseIDParam(c, "id")
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	order, err := h.orderUseCase.Get(c.Request.Context(), orderID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOrderToResponse(order))
}

// ListHandler lists orders newest first.
// GET /v1/orders?customer_id=N&offset=0&limit=50
func (h *OrderHandler) ListHandler(c *gin.Context) {
	customerID, err := httputil.ParseOptionalIDQuery(c, "customer_id")
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	orders, err := h.orderUseCase.List(c.Request.Context(), domain.OrderFilter{
		CustomerID: customerID,
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOrdersToListResponse(orders))
}
