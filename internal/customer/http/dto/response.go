// Package dto provides the customer API response shapes.
package dto

import (
	"github.com/allisson/orderflow/internal/customer/domain"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// CustomerResponse represents a customer in API responses.
type CustomerResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	OrdersCount int    `json:"orders_count"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// MapCustomerToResponse converts a domain customer to an API response.
func MapCustomerToResponse(customer *domain.Customer) CustomerResponse {
	return CustomerResponse{
		ID:          customer.ID,
		Name:        customer.Name,
		Address:     customer.Address,
		OrdersCount: customer.OrdersCount,
		CreatedAt:   customer.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt:   customer.UpdatedAt.UTC().Format(timestampLayout),
	}
}
