// Package http provides the internal customer API consumed by the order service.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/orderflow/internal/customer/http/dto"
	customerUseCase "github.com/allisson/orderflow/internal/customer/usecase"
	"github.com/allisson/orderflow/internal/httputil"
)

// CustomerHandler handles HTTP requests for customers.
type CustomerHandler struct {
	customerUseCase customerUseCase.CustomerUseCase
	logger          *slog.Logger
}

// NewCustomerHandler creates a new customer handler.
func NewCustomerHandler(customerUseCase customerUseCase.CustomerUseCase, logger *slog.Logger) *CustomerHandler {
	return &CustomerHandler{
		customerUseCase: customerUseCase,
		logger:          logger,
	}
}

// GetHandler returns one customer.
// GET /customers/:id
func (h *CustomerHandler) GetHandler(c *gin.Context) {
	customerID, err := httputil.ParseIDParam(c, "id")
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	customer, err := h.customerUseCase.Get(c.Request.Context(), customerID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCustomerToResponse(customer))
}
