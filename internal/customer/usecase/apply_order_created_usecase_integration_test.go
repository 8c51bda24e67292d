package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/orderflow/internal/customer/domain"
	"github.com/allisson/orderflow/internal/customer/repository"
	"github.com/allisson/orderflow/internal/database"
	"github.com/allisson/orderflow/internal/testutil"
)

func TestCustomerUseCase_PostgreSQLDuplicateEventsApplyOnce(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	ctx := context.Background()
	useCase := NewCustomerUseCase(
		database.NewTxManager(db),
		repository.NewPostgreSQLCustomerRepository(db),
		repository.NewPostgreSQLProcessedOrderEventRepository(db),
	)
	customerID := testutil.CreateTestCustomer(t, db, "postgres", "Ada")
	event := domain.OrderCreatedEvent{EventID: "evt-dup", CustomerID: customerID}

	const deliveries = 5
	results := make([]*domain.ApplyResult, deliveries)
	errs := make([]error, deliveries)

	var wg sync.WaitGroup
	for i := range deliveries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = useCase.Apply(ctx, event)
		}()
	}
	wg.Wait()

	applied := 0
	for i := range deliveries {
		require.NoError(t, errs[i])
		if results[i].IsApplied() {
			applied++
			continue
		}
		assert.Equal(t, domain.SkipReasonAlreadyProcessed, results[i].Reason)
	}
	assert.Equal(t, 1, applied)

	customer, err := useCase.Get(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, 1, customer.OrdersCount)
	assert.Equal(t, 1, testutil.CountRows(t, db, "processed_order_events"))
}

func TestCustomerUseCase_MySQLSequentialEvents(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)

	ctx := context.Background()
	useCase := NewCustomerUseCase(
		database.NewTxManager(db),
		repository.NewMySQLCustomerRepository(db),
		repository.NewMySQLProcessedOrderEventRepository(db),
	)
	customerID := testutil.CreateTestCustomer(t, db, "mysql", "Ada")

	for i := range 3 {
		result, err := useCase.Apply(ctx, domain.OrderCreatedEvent{
			EventID:    fmt.Sprintf("evt-%d", i),
			CustomerID: customerID,
		})
		require.NoError(t, err)
		assert.True(t, result.IsApplied())
		assert.Equal(t, i+1, result.Customer.OrdersCount)
	}

	replay, err := useCase.Apply(ctx, domain.OrderCreatedEvent{EventID: "evt-0", CustomerID: customerID})
	require.NoError(t, err)
	assert.Equal(t, domain.SkipReasonAlreadyProcessed, replay.Reason)

	missing, err := useCase.Apply(ctx, domain.OrderCreatedEvent{EventID: "evt-x", CustomerID: customerID + 1000})
	require.NoError(t, err)
	assert.Equal(t, domain.SkipReasonCustomerNotFound, missing.Reason)
}
