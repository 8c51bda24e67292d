package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/allisson/orderflow/internal/database"
	"github.com/allisson/orderflow/internal/order/domain"
)

// MySQLOrderRepository handles order persistence for MySQL 8.
type MySQLOrderRepository struct {
	db *sql.DB
}

// NewMySQLOrderRepository creates a new MySQLOrderRepository
func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{
		db: db,
	}
}

// Create inserts a new order and fills ID, CreatedAt and UpdatedAt.
// Returns ErrProductNameTaken when another order already uses the product name.
func (r *MySQLOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	querier := database.GetTx(ctx, r.db)

	now := time.Now().UTC().Truncate(time.Microsecond)

	query := `INSERT INTO orders (customer_id, product_name, quantity, price, status, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := querier.ExecContext(ctx, query, order.CustomerID, order.ProductName, order.Quantity,
		order.Price, order.Status, now, now)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrProductNameTaken
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	order.ID = id
	order.CreatedAt = now
	order.UpdatedAt = now
	return nil
}

// Get retrieves an order by id.
func (r *MySQLOrderRepository) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, customer_id, product_name, quantity, price, status, created_at, updated_at
			  FROM orders WHERE id = ?`

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
func (r *MySQLOrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	var (
		rows *sql.Rows
		err  error
	)
	if filter.CustomerID != nil {
		query := `SELECT id, customer_id, product_name, quantity, price, status, created_at, updated_at
				  FROM orders
				  WHERE customer_id = ?
				  ORDER BY created_at DESC, id DESC
				  LIMIT ? OFFSET ?`
		rows, err = querier.QueryContext(ctx, query, *filter.CustomerID, filter.Limit, filter.Offset)
	} else {
		query := `SELECT id, customer_id, product_name, quantity, price, status, created_at, updated_at
				  FROM orders
				  ORDER BY created_at DESC, id DESC
				  LIMIT ? OFFSET ?`
		rows, err = querier.QueryContext(ctx, query, filter.Limit, filter.Offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanOrders(rows)
}
