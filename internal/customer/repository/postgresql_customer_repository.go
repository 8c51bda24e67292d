// Package repository provides data persistence implementations for customers and the
// order events applied to them.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/orderflow/internal/customer/domain"
	"github.com/allisson/orderflow/internal/database"
)

// PostgreSQLCustomerRepository handles customer persistence for PostgreSQL.
type PostgreSQLCustomerRepository struct {
	db *sql.DB
}

// NewPostgreSQLCustomerRepository creates a new PostgreSQLCustomerRepository
func NewPostgreSQLCustomerRepository(db *sql.DB) *PostgreSQLCustomerRepository {
	return &PostgreSQLCustomerRepository{
		db: db,
	}
}

// Get retrieves a customer by id.
func (r *PostgreSQLCustomerRepository) Get(ctx context.Context, customerID int64) (*domain.Customer, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, name, address, orders_count, created_at, updated_at FROM customers WHERE id = $1`

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
func (r *PostgreSQLCustomerRepository) IncrementOrdersCount(ctx context.Context, customerID int64) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE customers SET orders_count = orders_count + 1, updated_at = NOW() WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, customerID)
	if err != nil {
		return err
	}

	return requireOneRow(result)
}

func requireOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

// PostgreSQLProcessedOrderEventRepository records applied order events in PostgreSQL.
type PostgreSQLProcessedOrderEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLProcessedOrderEventRepository creates a new PostgreSQLProcessedOrderEventRepository
func NewPostgreSQLProcessedOrderEventRepository(db *sql.DB) *PostgreSQLProcessedOrderEventRepository {
	return &PostgreSQLProcessedOrderEventRepository{
		db: db,
	}
}

// Create records event. A duplicate event id returns ErrEventAlreadyProcessed; the surrounding
// transaction is aborted and must be rolled back.
func (r *PostgreSQLProcessedOrderEventRepository) Create(
	ctx context.Context,
	event *domain.ProcessedOrderEvent,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO processed_order_events (event_id, customer_id, created_at)
			  VALUES ($1, $2, NOW())
			  RETURNING id, created_at`

	err := querier.QueryRowContext(ctx, query, event.EventID, event.CustomerID).
		Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrEventAlreadyProcessed
		}
		return err
	}

	return nil
}
