package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/orderflow/internal/database"
	"github.com/allisson/orderflow/internal/order/domain"
)

// PostgreSQLIdempotencyKeyRepository stores idempotency keys in PostgreSQL.
type PostgreSQLIdempotencyKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLIdempotencyKeyRepository creates a new PostgreSQLIdempotencyKeyRepository
func NewPostgreSQLIdempotencyKeyRepository(db *sql.DB) *PostgreSQLIdempotencyKeyRepository {
	return &PostgreSQLIdempotencyKeyRepository{
		db: db,
	}
}

// Create records key. A duplicate key returns ErrIdempotencyKeyExists; on PostgreSQL the
// surrounding transaction is aborted and must be rolled back.
func (r *PostgreSQLIdempotencyKeyRepository) Create(ctx context.Context, key *domain.IdempotencyKey) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO idempotency_keys (key, order_id, created_at) VALUES ($1, $2, NOW())
			  RETURNING created_at`

	err := querier.QueryRowContext(ctx, query, key.Key, key.OrderID).Scan(&key.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrIdempotencyKeyExists
		}
		return err
	}

	return nil
}

// Get retrieves the record for key.
func (r *PostgreSQLIdempotencyKeyRepository) Get(ctx context.Context, key string) (*domain.IdempotencyKey, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT key, order_id, created_at FROM idempotency_keys WHERE key = $1`

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
