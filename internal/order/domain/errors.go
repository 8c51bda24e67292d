package domain

import (
	"github.com/allisson/orderflow/internal/errors"
)

// Order-specific error definitions.
var (
	// ErrOrderNotFound indicates the order does not exist.
	ErrOrderNotFound = errors.Wrap(errors.ErrNotFound, "order not found")

	// ErrProductNameTaken indicates another order already uses the product name.
	ErrProductNameTaken = errors.Wrap(errors.ErrConflict, "product name has already been taken")

	// ErrIdempotencyKeyNotFound indicates no order was recorded for the key.
	ErrIdempotencyKeyNotFound = errors.Wrap(errors.ErrNotFound, "idempotency key not found")

	// ErrIdempotencyKeyExists is returned by the repository on a duplicate key insert.
	ErrIdempotencyKeyExists = errors.Wrap(errors.ErrConflict, "idempotency key already exists")

	// ErrCustomerNotFound indicates the customer service does not know the customer.
	ErrCustomerNotFound = errors.Wrap(errors.ErrNotFound, "customer not found")

	// ErrCustomerUnauthorized indicates the customer service rejected our credentials.
	ErrCustomerUnauthorized = errors.Wrap(errors.ErrUnauthorized, "customer service rejected credentials")

	// ErrCustomerServiceUnavailable covers timeouts, transport errors, 5xx and an open breaker.
	ErrCustomerServiceUnavailable = errors.Wrap(errors.ErrUnavailable, "customer service unavailable")
)
