package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/allisson/orderflow/internal/customer/domain"
	"github.com/allisson/orderflow/internal/database"
)

// MySQLCustomerRepository handles customer persistence for MySQL 8.
type MySQLCustomerRepository struct {
	db *sql.DB
}

// NewMySQLCustomerRepository creates a new MySQLCustomerRepository
func NewMySQLCustomerRepository(db *sql.DB) *MySQLCustomerRepository {
	return &MySQLCustomerRepository{
		db: db,
	}
}

// Get retrieves a customer by id.
func (r *MySQLCustomerRepository) Get(ctx context.Context, customerID int64) (*domain.Customer, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, name, address, orders_count, created_at, updated_at FROM customers WHERE id = ?`

	var customer domain.Customer
	err := querier.QueryRowContext(ctx, query, customerID).Scan(&customer.ID, &customer.Name,
		&customer.Address, &customer.OrdersCount, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}

	return &customer, nil
}

// IncrementOrdersCount adds one to the customer's order count in a single statement.
func (r *MySQLCustomerRepository) IncrementOrdersCount(ctx context.Context, customerID int64) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE customers SET orders_count = orders_count + 1, updated_at = UTC_TIMESTAMP(6) WHERE id = ?`

	result, err := querier.ExecContext(ctx, query, customerID)
	if err != nil {
		return err
	}

	return requireOneRow(result)
}

// MySQLProcessedOrderEventRepository records applied order events in MySQL 8.
type MySQLProcessedOrderEventRepository struct {
	db *sql.DB
}

// NewMySQLProcessedOrderEventRepository creates a new MySQLProcessedOrderEventRepository
func NewMySQLProcessedOrderEventRepository(db *sql.DB) *MySQLProcessedOrderEventRepository {
	return &MySQLProcessedOrderEventRepository{
		db: db,
	}
}

// Create records event. A duplicate event id returns ErrEventAlreadyProcessed.
func (r *MySQLProcessedOrderEventRepository) Create(ctx context.Context, event *domain.ProcessedOrderEvent) error {
	querier := database.GetTx(ctx, r.db)

	now := time.Now().UTC().Truncate(time.Microsecond)

	query := `INSERT INTO processed_order_events (event_id, customer_id, created_at) VALUES (?, ?, ?)`

	result, err := querier.ExecContext(ctx, query, event.EventID, event.CustomerID, now)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrEventAlreadyProcessed
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	event.ID = id
	event.CreatedAt = now
	return nil
}
