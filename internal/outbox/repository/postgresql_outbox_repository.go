// Package repository provides data persistence implementations for outbox entities.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/orderflow/internal/database"
	"github.com/allisson/orderflow/internal/outbox/domain"
)

// PostgreSQLOutboxEventRepository handles outbox event persistence for PostgreSQL.
// Every method runs on the transaction carried by ctx when there is one.
type PostgreSQLOutboxEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLOutboxEventRepository creates a new PostgreSQLOutboxEventRepository
func NewPostgreSQLOutboxEventRepository(db *sql.DB) *PostgreSQLOutboxEventRepository {
	return &PostgreSQLOutboxEventRepository{
		db: db,
	}
}

// Create inserts a new outbox event and fills CreatedAt/UpdatedAt from the database clock.
func (r *PostgreSQLOutboxEventRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_events (id, aggregate_type, aggregate_id, event_type, payload, status,
			  error_message, processed_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
			  RETURNING created_at, updated_at`

	return querier.QueryRowContext(ctx, query, event.ID, event.AggregateType, event.AggregateID,
		event.EventType, event.Payload, event.Status, event.ErrorMessage, event.ProcessedAt).
		Scan(&event.CreatedAt, &event.UpdatedAt)
}

// ClaimPending locks up to limit pending events, oldest first. Rows already locked by another
// relay are skipped, so the call must run inside a transaction to hold the locks.
func (r *PostgreSQLOutboxEventRepository) ClaimPending(
	ctx context.Context,
	limit int,
) ([]*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, aggregate_type, aggregate_id, event_type, payload, status, error_message,
			  processed_at, created_at, updated_at
			  FROM outbox_events
			  WHERE status = $1
			  ORDER BY created_at ASC
			  LIMIT $2
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.OutboxEventStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var events []*domain.OutboxEvent
	for rows.Next() {
		var event domain.OutboxEvent

		err := rows.Scan(&event.ID, &event.AggregateType, &event.AggregateID, &event.EventType,
			&event.Payload, &event.Status, &event.ErrorMessage, &event.ProcessedAt,
			&event.CreatedAt, &event.UpdatedAt)
		if err != nil {
			return nil, err
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// Update persists the status, error message and processed timestamp of an event. The row must
// still hold a status the event may move from, otherwise domain.ErrStaleEvent is returned.
func (r *PostgreSQLOutboxEventRepository) Update(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET status = $1, error_message = $2, processed_at = $3, updated_at = NOW()
			  WHERE id = $4 AND status IN ($5, $6)`

	from1, from2 := fromStatuses(event.Status)
	result, err := querier.ExecContext(ctx, query, event.Status, event.ErrorMessage, event.ProcessedAt,
		event.ID, from1, from2)
	if err != nil {
		return err
	}

	return requireTransition(result)
}

// ResetFailed moves up to limit failed events back to pending, oldest first.
func (r *PostgreSQLOutboxEventRepository) ResetFailed(ctx context.Context, limit int) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events SET status = $1, updated_at = NOW()
			  WHERE id IN (
			      SELECT id FROM outbox_events
			      WHERE status = $2
			      ORDER BY created_at ASC
			      LIMIT $3
			      FOR UPDATE SKIP LOCKED
			  )`

	result, err := querier.ExecContext(ctx, query, domain.OutboxEventStatusPending,
		domain.OutboxEventStatusFailed, limit)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// ResetStuckProcessing moves up to limit events that have been processing for longer than
// olderThan back to pending. The cutoff is computed with the database clock.
func (r *PostgreSQLOutboxEventRepository) ResetStuckProcessing(
	ctx context.Context,
	olderThan time.Duration,
	limit int,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events SET status = $1, updated_at = NOW()
			  WHERE id IN (
			      SELECT id FROM outbox_events
			      WHERE status = $2 AND updated_at < NOW() - ($3::float8 * INTERVAL '1 millisecond')
			      ORDER BY created_at ASC
			      LIMIT $4
			      FOR UPDATE SKIP LOCKED
			  )`

	result, err := querier.ExecContext(ctx, query, domain.OutboxEventStatusPending,
		domain.OutboxEventStatusProcessing, olderThan.Milliseconds(), limit)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// CountByStatus returns the number of events per status. Statuses without rows are zero.
func (r *PostgreSQLOutboxEventRepository) CountByStatus(
	ctx context.Context,
) (map[domain.OutboxEventStatus]int64, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, `SELECT status, COUNT(*) FROM outbox_events GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanStatusCounts(rows)
}

func scanStatusCounts(rows *sql.Rows) (map[domain.OutboxEventStatus]int64, error) {
	counts := make(map[domain.OutboxEventStatus]int64, len(domain.Statuses))
	for _, status := range domain.Statuses {
		counts[status] = 0
	}

	for rows.Next() {
		var status domain.OutboxEventStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}
