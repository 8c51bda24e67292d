package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/orderflow/internal/database"
	"github.com/allisson/orderflow/internal/outbox/domain"
	"github.com/allisson/orderflow/internal/testutil"
)

func newPendingEvent(t *testing.T, aggregateID string) *domain.OutboxEvent {
	t.Helper()
	event, err := domain.NewOutboxEvent("Order", aggregateID, "order.created",
		[]byte(`{"id":`+aggregateID+`}`))
	require.NoError(t, err)
	return event
}

func TestPostgreSQLOutboxEventRepository_ClaimPendingQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WithArgs(domain.OutboxEventStatusPending, 10).
		WillReturnError(errors.New("connection reset"))

	repo := NewPostgreSQLOutboxEventRepository(db)
	events, err := repo.ClaimPending(context.Background(), 10)

	assert.EqualError(t, err, "connection reset")
	assert.Nil(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLOutboxEventRepository_UpdateRequiresExpectedStatus(t *testing.T) {
	tests := []struct {
		name    string
		rows    int64
		wantErr error
	}{
		{"row still processing", 1, nil},
		{"row taken over", 0, domain.ErrStaleEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close() //nolint:errcheck

			event := newPendingEvent(t, "4")
			require.NoError(t, event.MarkProcessing())
			require.NoError(t, event.MarkProcessed(time.Now()))

			mock.ExpectExec(`WHERE id = \$4 AND status IN \(\$5, \$6\)`).
				WithArgs(domain.OutboxEventStatusProcessed, nil, sqlmock.AnyArg(), event.ID,
					domain.OutboxEventStatusProcessing, domain.OutboxEventStatusProcessing).
				WillReturnResult(sqlmock.NewResult(0, tt.rows))

			repo := NewPostgreSQLOutboxEventRepository(db)
			err = repo.Update(context.Background(), event)

			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgreSQLOutboxEventRepository_ResetStuckProcessingArgs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	mock.ExpectExec(`UPDATE outbox_events SET status`).
		WithArgs(domain.OutboxEventStatusPending, domain.OutboxEventStatusProcessing, int64(300000), 50).
		WillReturnResult(sqlmock.NewResult(0, 3))

	repo := NewPostgreSQLOutboxEventRepository(db)
	count, err := repo.ResetStuckProcessing(context.Background(), 5*time.Minute, 50)

	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLOutboxEventRepository_CountByStatusFillsMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM outbox_events GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 4).
			AddRow("failed", 1))

	repo := NewPostgreSQLOutboxEventRepository(db)
	counts, err := repo.CountByStatus(context.Background())

	require.NoError(t, err)
	assert.Equal(t, map[domain.OutboxEventStatus]int64{
		domain.OutboxEventStatusPending:    4,
		domain.OutboxEventStatusProcessing: 0,
		domain.OutboxEventStatusProcessed:  0,
		domain.OutboxEventStatusFailed:     1,
	}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLOutboxEventRepository_CreateAndClaim(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLOutboxEventRepository(db)
	ctx := context.Background()

	first := newPendingEvent(t, "1")
	second := newPendingEvent(t, "2")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	assert.False(t, first.CreatedAt.IsZero())

	events, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, first.ID, events[0].ID)
	assert.Equal(t, "Order", events[0].AggregateType)
	assert.Equal(t, "1", events[0].AggregateID)
	assert.Equal(t, "order.created", events[0].EventType)
	assert.JSONEq(t, `{"id":1}`, events[0].Payload)
	assert.Equal(t, domain.OutboxEventStatusPending, events[0].Status)
	assert.Equal(t, second.ID, events[1].ID)

	limited, err := repo.ClaimPending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPostgreSQLOutboxEventRepository_ClaimSkipsLockedRows(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLOutboxEventRepository(db)
	txManager := database.NewTxManager(db)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3", "4"} {
		require.NoError(t, repo.Create(ctx, newPendingEvent(t, id)))
	}

	locked := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	var firstClaim []*domain.OutboxEvent
	go func() {
		defer wg.Done()
		_ = txManager.WithTx(ctx, func(txCtx context.Context) error {
			events, err := repo.ClaimPending(txCtx, 2)
			if err != nil {
				close(locked)
				return err
			}
			firstClaim = events
			close(locked)
			<-release
			return nil
		})
	}()

	<-locked

	var secondClaim []*domain.OutboxEvent
	err := txManager.WithTx(ctx, func(txCtx context.Context) error {
		events, err := repo.ClaimPending(txCtx, 10)
		secondClaim = events
		return err
	})
	close(release)
	wg.Wait()

	require.NoError(t, err)
	require.Len(t, firstClaim, 2)
	require.Len(t, secondClaim, 2)

	seen := map[string]bool{}
	for _, event := range append(firstClaim, secondClaim...) {
		assert.False(t, seen[event.ID.String()], "event claimed twice")
		seen[event.ID.String()] = true
	}
}

func TestPostgreSQLOutboxEventRepository_UpdateAndReset(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLOutboxEventRepository(db)
	ctx := context.Background()

	failed := newPendingEvent(t, "1")
	processed := newPendingEvent(t, "2")
	stuck := newPendingEvent(t, "3")
	for _, event := range []*domain.OutboxEvent{failed, processed, stuck} {
		require.NoError(t, repo.Create(ctx, event))
		require.NoError(t, event.MarkProcessing())
		require.NoError(t, repo.Update(ctx, event))
	}

	require.NoError(t, failed.MarkFailed("broker unavailable"))
	require.NoError(t, repo.Update(ctx, failed))
	require.NoError(t, processed.MarkProcessed(time.Now()))
	require.NoError(t, repo.Update(ctx, processed))

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.OutboxEventStatusFailed])
	assert.Equal(t, int64(1), counts[domain.OutboxEventStatusProcessed])
	assert.Equal(t, int64(1), counts[domain.OutboxEventStatusProcessing])
	assert.Equal(t, int64(0), counts[domain.OutboxEventStatusPending])

	reset, err := repo.ResetStuckProcessing(ctx, time.Hour, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reset, "fresh processing rows are not stuck")

	_, err = db.ExecContext(ctx,
		`UPDATE outbox_events SET updated_at = NOW() - INTERVAL '2 hours' WHERE id = $1`, stuck.ID)
	require.NoError(t, err)

	reset, err = repo.ResetStuckProcessing(ctx, time.Hour, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reset)

	reset, err = repo.ResetFailed(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reset)

	pending, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, failed.ID, pending[0].ID)
	require.NotNil(t, pending[0].ErrorMessage)
	assert.Equal(t, "broker unavailable", *pending[0].ErrorMessage)
	assert.Equal(t, stuck.ID, pending[1].ID)
}

func TestPostgreSQLOutboxEventRepository_LateOutcomeDoesNotOverwriteNewClaim(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLOutboxEventRepository(db)
	ctx := context.Background()

	event := newPendingEvent(t, "1")
	require.NoError(t, repo.Create(ctx, event))

	// The slow relay claims the event and stalls.
	slow, err := repo.ClaimPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, slow, 1)
	require.NoError(t, slow[0].MarkProcessing())
	require.NoError(t, repo.Update(ctx, slow[0]))

	_, err = db.ExecContext(ctx,
		`UPDATE outbox_events SET updated_at = NOW() - INTERVAL '2 hours' WHERE id = $1`, event.ID)
	require.NoError(t, err)
	reset, err := repo.ResetStuckProcessing(ctx, time.Hour, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), reset)

	// A second relay claims and publishes it.
	fast, err := repo.ClaimPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, fast, 1)
	require.NoError(t, fast[0].MarkProcessing())
	require.NoError(t, repo.Update(ctx, fast[0]))
	require.NoError(t, fast[0].MarkProcessed(time.Now()))
	require.NoError(t, repo.Update(ctx, fast[0]))

	// The slow relay's late failure must not win.
	require.NoError(t, slow[0].MarkFailed("confirm timeout"))
	err = repo.Update(ctx, slow[0])
	assert.ErrorIs(t, err, domain.ErrStaleEvent)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.OutboxEventStatusProcessed])
	assert.Equal(t, int64(0), counts[domain.OutboxEventStatusFailed])
}
