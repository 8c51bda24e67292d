package domain

import (
	"github.com/allisson/orderflow/internal/errors"
)

// Customer-specific error definitions.
var (
	// ErrCustomerNotFound indicates the customer does not exist.
	ErrCustomerNotFound = errors.Wrap(errors.ErrNotFound, "customer not found")

	// ErrEventAlreadyProcessed is returned on a duplicate processed event insert.
	ErrEventAlreadyProcessed = errors.Wrap(errors.ErrConflict, "order event already processed")

	// ErrMalformedEvent indicates a message body that can never be applied.
	ErrMalformedEvent = errors.Wrap(errors.ErrInvalidInput, "malformed order event")
)
