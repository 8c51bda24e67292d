package usecase

import (
	"context"
	"errors"
	"strconv"

	"github.com/allisson/orderflow/internal/database"
	"github.com/allisson/orderflow/internal/order/domain"
	outboxDomain "github.com/allisson/orderflow/internal/outbox/domain"
)

// orderUseCase implements OrderUseCase.
type orderUseCase struct {
	txManager  database.TxManager
	orderRepo  OrderRepository
	keyRepo    IdempotencyKeyRepository
	outboxRepo OutboxEventRepository
	customers  CustomerValidator
}

// NewOrderUseCase creates a new OrderUseCase.
func NewOrderUseCase(
	txManager database.TxManager,
	orderRepo OrderRepository,
	keyRepo IdempotencyKeyRepository,
	outboxRepo OutboxEventRepository,
	customers CustomerValidator,
) OrderUseCase {
	return &orderUseCase{
		txManager:  txManager,
		orderRepo:  orderRepo,
		keyRepo:    keyRepo,
		outboxRepo: outboxRepo,
		customers:  customers,
	}
}

// Create places an order, its idempotency key and its order.created outbox event in one
// transaction. The customer is validated first and no row is written when it fails.
func (o *orderUseCase) Create(
	ctx context.Context,
	input domain.CreateOrderInput,
	idempotencyKey string,
) (*domain.CreateOrderResult, error) {
	if err := domain.ValidateIdempotencyKey(idempotencyKey); err != nil {
		return nil, err
	}

	if idempotencyKey != "" {
		existing, err := o.findByKey(ctx, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	if _, err := o.customers.ValidateCustomer(ctx, input.CustomerID); err != nil {
		return nil, err
	}

	order := &domain.Order{
		CustomerID:  input.CustomerID,
		ProductName: input.ProductName,
		Quantity:    input.Quantity,
		Price:       input.Price,
		Status:      domain.OrderStatusPending,
	}

	err := o.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := o.orderRepo.Create(txCtx, order); err != nil {
			return err
		}

		if idempotencyKey != "" {
			key := &domain.IdempotencyKey{Key: idempotencyKey, OrderID: order.ID}
			if err := o.keyRepo.Create(txCtx, key); err != nil {
				return err
			}
		}

		payload, err := order.CreatedEventPayload()
		if err != nil {
			return err
		}

		event, err := outboxDomain.NewOutboxEvent(
			domain.AggregateTypeOrder,
			strconv.FormatInt(order.ID, 10),
			domain.EventTypeOrderCreated,
			payload,
		)
		if err != nil {
			return err
		}

		return o.outboxRepo.Create(txCtx, event)
	})
	if err != nil {
		return o.resolveConcurrentCreate(ctx, idempotencyKey, err)
	}

	return &domain.CreateOrderResult{Order: order, Created: true}, nil
}

// resolveConcurrentCreate handles a transaction that lost a race with a concurrent request
// using the same key. The winner either inserted the key first or, with the same product name,
// the order row first. Both cases return the winner's order.
func (o *orderUseCase) resolveConcurrentCreate(
	ctx context.Context,
	idempotencyKey string,
	txErr error,
) (*domain.CreateOrderResult, error) {
	if idempotencyKey == "" {
		return nil, txErr
	}
	if !errors.Is(txErr, domain.ErrIdempotencyKeyExists) && !errors.Is(txErr, domain.ErrProductNameTaken) {
		return nil, txErr
	}

	existing, err := o.findByKey(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, txErr
	}
	return existing, nil
}

// findByKey returns nil without error when the key is unknown.
func (o *orderUseCase) findByKey(ctx context.Context, idempotencyKey string) (*domain.CreateOrderResult, error) {
	key, err := o.keyRepo.Get(ctx, idempotencyKey)
	if err != nil {
		if errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	order, err := o.orderRepo.Get(ctx, key.OrderID)
	if err != nil {
		return nil, err
	}

	return &domain.CreateOrderResult{Order: order, Created: false}, nil
}

// Get retrieves an order by id.
func (o *orderUseCase) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	return o.orderRepo.Get(ctx, orderID)
}

// List returns orders newest first.
func (o *orderUseCase) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	return o.orderRepo.List(ctx, filter)
}
