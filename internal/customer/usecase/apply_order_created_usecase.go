package usecase

import (
	"context"
	"errors"

	"github.com/allisson/orderflow/internal/customer/domain"
	"github.com/allisson/orderflow/internal/database"
)

// customerUseCase implements CustomerUseCase.
type customerUseCase struct {
	txManager    database.TxManager
	customerRepo CustomerRepository
	eventRepo    ProcessedOrderEventRepository
}

// NewCustomerUseCase creates a new CustomerUseCase.
func NewCustomerUseCase(
	txManager database.TxManager,
	customerRepo CustomerRepository,
	eventRepo ProcessedOrderEventRepository,
) CustomerUseCase {
	return &customerUseCase{
		txManager:    txManager,
		customerRepo: customerRepo,
		eventRepo:    eventRepo,
	}
}

// Apply records the event id and increments the customer's order count in one transaction.
// A duplicate event id rolls the transaction back and is reported as already processed.
func (c *customerUseCase) Apply(
	ctx context.Context,
	event domain.OrderCreatedEvent,
) (*domain.ApplyResult, error) {
	if event.EventID == "" {
		return domain.Skipped(domain.SkipReasonMissingEventID), nil
	}
	if event.CustomerID <= 0 {
		return domain.Skipped(domain.SkipReasonMissingCustomerID), nil
	}

	if _, err := c.customerRepo.Get(ctx, event.CustomerID); err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return domain.Skipped(domain.SkipReasonCustomerNotFound), nil
		}
		return nil, err
	}

	processed := &domain.ProcessedOrderEvent{
		EventID:    event.EventID,
		CustomerID: event.CustomerID,
	}

	var customer *domain.Customer
	err := c.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := c.eventRepo.Create(txCtx, processed); err != nil {
			return err
		}

		if err := c.customerRepo.IncrementOrdersCount(txCtx, event.CustomerID); err != nil {
			return err
		}

		updated, err := c.customerRepo.Get(txCtx, event.CustomerID)
		if err != nil {
			return err
		}
		customer = updated
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEventAlreadyProcessed):
			return domain.Skipped(domain.SkipReasonAlreadyProcessed), nil
		case errors.Is(err, domain.ErrCustomerNotFound):
			return domain.Skipped(domain.SkipReasonCustomerNotFound), nil
		}
		return nil, err
	}

	return domain.Applied(customer, processed), nil
}
