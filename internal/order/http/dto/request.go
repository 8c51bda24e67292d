// Package dto provides data transfer objects for the order HTTP API.
package dto

import (
	"github.com/shopspring/decimal"

	"github.com/allisson/orderflow/internal/order/domain"
)

// CreateOrderRequest is the body of POST /v1/orders. Price accepts a JSON number or string.
type CreateOrderRequest struct {
	CustomerID  int64           `json:"customer_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// ToInput converts the request into the use-case input.
func (r *CreateOrderRequest) ToInput() domain.CreateOrderInput {
	return domain.CreateOrderInput{
		CustomerID:  r.CustomerID,
		ProductName: r.ProductName,
		Quantity:    r.Quantity,
		Price:       r.Price,
	}
}
