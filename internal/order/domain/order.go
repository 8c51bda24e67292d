// Package domain defines the order aggregate, its idempotency key and the
// customer metadata returned by the customer service.
package domain

import (
	"encoding/json"
	"time"

	validation "github.com/jellydator/validation"
	"github.com/shopspring/decimal"

	customValidation "github.com/allisson/orderflow/internal/validation"
)

// Outbox metadata of the event emitted when an order is created.
const (
	AggregateTypeOrder    = "Order"
	EventTypeOrderCreated = "order.created"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is the aggregate created by the order service.
type Order struct {
	ID          int64
	CustomerID  int64
	ProductName string
	Quantity    int
	Price       decimal.Decimal
	Status      OrderStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// orderSnapshot is the JSON payload stored in the outbox for order.created.
type orderSnapshot struct {
	ID          int64       `json:"id"`
	CustomerID  int64       `json:"customer_id"`
	ProductName string      `json:"product_name"`
	Quantity    int         `json:"quantity"`
	Price       string      `json:"price"`
	Status      OrderStatus `json:"status"`
	CreatedAt   string      `json:"created_at"`
	UpdatedAt   string      `json:"updated_at"`
}

// CreatedEventPayload serializes the order snapshot carried by the order.created event.
func (o *Order) CreatedEventPayload() ([]byte, error) {
	return json.Marshal(orderSnapshot{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		ProductName: o.ProductName,
		Quantity:    o.Quantity,
		Price:       o.Price.StringFixed(2),
		Status:      o.Status,
		CreatedAt:   o.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   o.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
}

// CreateOrderInput holds the caller-supplied fields of a new order.
type CreateOrderInput struct {
	CustomerID  int64           `json:"customer_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Validate checks the input before any outbound call or write.
func (in *CreateOrderInput) Validate() error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.CustomerID, validation.Required, validation.Min(int64(1))),
		validation.Field(&in.ProductName,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
		validation.Field(&in.Quantity, validation.Min(0)),
		validation.Field(&in.Price, customValidation.Money),
	)
	return customValidation.WrapValidationError(err)
}

// CreateOrderResult is returned by a successful create. Created is false when the
// idempotency key already referenced an order.
type CreateOrderResult struct {
	Order   *Order
	Created bool
}

// IdempotencyKey maps a client-supplied key to the order created for it.
type IdempotencyKey struct {
	Key       string
	OrderID   int64
	CreatedAt time.Time
}

// ValidateIdempotencyKey checks a client-supplied key. Empty keys are allowed and disable dedup.
func ValidateIdempotencyKey(key string) error {
	err := validation.Validate(key, validation.Length(1, 255), customValidation.PrintableASCII)
	if err != nil {
		return customValidation.WrapValidationError(validation.Errors{"idempotency_key": err})
	}
	return nil
}

// OrderFilter narrows an order listing.
type OrderFilter struct {
	CustomerID *int64
	Offset     int
	Limit      int
}

// CustomerMetadata is what the customer service returns for a valid customer.
type CustomerMetadata struct {
	ID          int64
	Name        string
	Address     string
	OrdersCount int
}
