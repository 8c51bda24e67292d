// Package repository provides data persistence implementations for orders and their
// idempotency keys.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/orderflow/internal/database"
	"github.com/allisson/orderflow/internal/order/domain"
)

// PostgreSQLOrderRepository handles order persistence for PostgreSQL.
type PostgreSQLOrderRepository struct {
	db *sql.DB
}

// NewPostgreSQLOrderRepository creates a new PostgreSQLOrderRepository
func NewPostgreSQLOrderRepository(db *sql.DB) *PostgreSQLOrderRepository {
	return &PostgreSQLOrderRepository{
		db: db,
	}
}

// Create inserts a new order and fills ID, CreatedAt and UpdatedAt.
// Returns ErrProductNameTaken when another order already uses the product name.
func (r *PostgreSQLOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO orders (customer_id, product_name, quantity, price, status, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			  RETURNING id, created_at, updated_at`

	err := querier.QueryRowContext(ctx, query, order.CustomerID, order.ProductName, order.Quantity,
		order.Price, order.Status).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrProductNameTaken
		}
		return err
	}

	return nil
}

// Get retrieves an order by id.
func (r *PostgreSQLOrderRepository) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, customer_id, product_name, quantity, price, status, created_at, updated_at
			  FROM orders WHERE id = $1`

	var order domain.Order
	err := querier.QueryRowContext(ctx, query, orderID).Scan(&order.ID, &order.CustomerID,
		&order.ProductName, &order.Quantity, &order.Price, &order.Status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	return &order, nil
}

// List returns orders newest first, optionally restricted to one customer.
func (r *PostgreSQLOrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	var (
		rows *sql.Rows
		err  error
	)
	if filter.CustomerID != nil {
		query := `SELECT id, customer_id, product_name, quantity, price, status, created_at, updated_at
				  FROM orders
				  WHERE customer_id = $1
				  ORDER BY created_at DESC, id DESC
				  LIMIT $2 OFFSET $3`
		rows, err = querier.QueryContext(ctx, query, *filter.CustomerID, filter.Limit, filter.Offset)
	} else {
		query := `SELECT id, customer_id, product_name, quantity, price, status, created_at, updated_at
				  FROM orders
				  ORDER BY created_at DESC, id DESC
				  LIMIT $1 OFFSET $2`
		rows, err = querier.QueryContext(ctx, query, filter.Limit, filter.Offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanOrders(rows)
}

func scanOrders(rows *sql.Rows) ([]*domain.Order, error) {
	orders := make([]*domain.Order, 0)
	for rows.Next() {
		var order domain.Order
		err := rows.Scan(&order.ID, &order.CustomerID, &order.ProductName, &order.Quantity,
			&order.Price, &order.Status, &order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return nil, err
		}
		orders = append(orders, &order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}
