package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/allisson/orderflow/internal/database"
	"github.com/allisson/orderflow/internal/order/domain"
)

// MySQLIdempotencyKeyRepository stores idempotency keys in MySQL 8.
type MySQLIdempotencyKeyRepository struct {
	db *sql.DB
}

// NewMySQLIdempotencyKeyRepository creates a new MySQLIdempotencyKeyRepository
func NewMySQLIdempotencyKeyRepository(db *sql.DB) *MySQLIdempotencyKeyRepository {
	return &MySQLIdempotencyKeyRepository{
		db: db,
	}
}

// Create records key. A duplicate key returns ErrIdempotencyKeyExists.
func (r *MySQLIdempotencyKeyRepository) Create(ctx context.Context, key *domain.IdempotencyKey) error {
	querier := database.GetTx(ctx, r.db)

	now := time.Now().UTC().Truncate(time.Microsecond)

	query := "INSERT INTO idempotency_keys (`key`, order_id, created_at) VALUES (?, ?, ?)"

	if _, err := querier.ExecContext(ctx, query, key.Key, key.OrderID, now); err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrIdempotencyKeyExists
		}
		return err
	}

	key.CreatedAt = now
	return nil
}

// Get retrieves the record for key.
func (r *MySQLIdempotencyKeyRepository) Get(ctx context.Context, key string) (*domain.IdempotencyKey, error) {
	querier := database.GetTx(ctx, r.db)

	query := "SELECT `key`, order_id, created_at FROM idempotency_keys WHERE `key` = ?"

	var record domain.IdempotencyKey
	err := querier.QueryRowContext(ctx, query, key).Scan(&record.Key, &record.OrderID, &record.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIdempotencyKeyNotFound
		}
		return nil, err
	}

	return &record, nil
}
