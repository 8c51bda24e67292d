package dto

import (
	"github.com/allisson/orderflow/internal/order/domain"
)

// timestampLayout renders timestamps in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID          int64  `json:"id"`
	CustomerID  int64  `json:"customer_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// MapOrderToResponse converts a domain order to an API response.
func MapOrderToResponse(order *domain.Order) OrderResponse {
	return OrderResponse{
		ID:          order.ID,
		CustomerID:  order.CustomerID,
		ProductName: order.ProductName,
		Quantity:    order.Quantity,
		Price:       order.Price.StringFixed(2),
		Status:      string(order.Status),
		CreatedAt:   order.CreatedAt.UTC().Format(timestampLayout),
	}
}

// ListOrdersResponse represents a page of orders.
type ListOrdersResponse struct {
	Data []OrderResponse `json:"data"`
}

// MapOrdersToListResponse converts domain orders to a list response.
func MapOrdersToListResponse(orders []*domain.Order) ListOrdersResponse {
	data := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		data = append(data, MapOrderToResponse(order))
	}

	return ListOrdersResponse{
		Data: data,
	}
}
