package usecase

import (
	"context"

	"github.com/allisson/orderflow/internal/customer/domain"
)

// Get retrieves a customer by id.
func (c *customerUseCase) Get(ctx context.Context, customerID int64) (*domain.Customer, error) {
	return c.customerRepo.Get(ctx, customerID)
}
