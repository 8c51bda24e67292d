package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/orderflow/internal/database"
	"github.com/allisson/orderflow/internal/outbox/domain"
)

// MySQLOutboxEventRepository handles outbox event persistence for MySQL 8.
//
// Event ids are stored as BINARY(16) and converted with uuid.MarshalBinary and
// uuid.UnmarshalBinary. Timestamps are DATETIME(6) written with UTC_TIMESTAMP(6).
type MySQLOutboxEventRepository struct {
	db *sql.DB
}

// NewMySQLOutboxEventRepository creates a new MySQLOutboxEventRepository
func NewMySQLOutboxEventRepository(db *sql.DB) *MySQLOutboxEventRepository {
	return &MySQLOutboxEventRepository{
		db: db,
	}
}

// Create inserts a new outbox event
func (r *MySQLOutboxEventRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := event.ID.MarshalBinary()
	if err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)

	query := `INSERT INTO outbox_events (id, aggregate_type, aggregate_id, event_type, payload, status,
			  error_message, processed_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query, idBytes, event.AggregateType, event.AggregateID,
		event.EventType, event.Payload, event.Status, event.ErrorMessage, event.ProcessedAt, now, now)
	if err != nil {
		return err
	}

	event.CreatedAt = now
	event.UpdatedAt = now
	return nil
}

// ClaimPending locks up to limit pending events, oldest first, skipping rows locked elsewhere.
func (r *MySQLOutboxEventRepository) ClaimPending(
	ctx context.Context,
	limit int,
) ([]*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, aggregate_type, aggregate_id, event_type, payload, status, error_message,
			  processed_at, created_at, updated_at
			  FROM outbox_events
			  WHERE status = ?
			  ORDER BY created_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.OutboxEventStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var events []*domain.OutboxEvent
	for rows.Next() {
		var event domain.OutboxEvent
		var idBytes []byte

		err := rows.Scan(&idBytes, &event.AggregateType, &event.AggregateID, &event.EventType,
			&event.Payload, &event.Status, &event.ErrorMessage, &event.ProcessedAt,
			&event.CreatedAt, &event.UpdatedAt)
		if err != nil {
			return nil, err
		}

		if err := event.ID.UnmarshalBinary(idBytes); err != nil {
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
func (r *MySQLOutboxEventRepository) Update(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := event.ID.MarshalBinary()
	if err != nil {
		return err
	}

	query := `UPDATE outbox_events
			  SET status = ?, error_message = ?, processed_at = ?, updated_at = UTC_TIMESTAMP(6)
			  WHERE id = ? AND status IN (?, ?)`

	from1, from2 := fromStatuses(event.Status)
	result, err := querier.ExecContext(ctx, query, event.Status, event.ErrorMessage, event.ProcessedAt,
		idBytes, from1, from2)
	if err != nil {
		return err
	}

	return requireTransition(result)
}

// ResetFailed moves up to limit failed events back to pending, oldest first.
func (r *MySQLOutboxEventRepository) ResetFailed(ctx context.Context, limit int) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events SET status = ?, updated_at = UTC_TIMESTAMP(6)
			  WHERE status = ?
			  ORDER BY created_at ASC
			  LIMIT ?`

	result, err := querier.ExecContext(ctx, query, domain.OutboxEventStatusPending,
		domain.OutboxEventStatusFailed, limit)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// ResetStuckProcessing moves up to limit events that have been processing for longer than
// olderThan back to pending.
func (r *MySQLOutboxEventRepository) ResetStuckProcessing(
	ctx context.Context,
	olderThan time.Duration,
	limit int,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events SET status = ?, updated_at = UTC_TIMESTAMP(6)
			  WHERE status = ? AND updated_at < UTC_TIMESTAMP(6) - INTERVAL ? MICROSECOND
			  ORDER BY created_at ASC
			  LIMIT ?`

	result, err := querier.ExecContext(ctx, query, domain.OutboxEventStatusPending,
		domain.OutboxEventStatusProcessing, olderThan.Microseconds(), limit)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// CountByStatus returns the number of events per status. Statuses without rows are zero.
func (r *MySQLOutboxEventRepository) CountByStatus(
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
