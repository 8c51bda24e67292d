package repository

import (
	"database/sql"

	"github.com/allisson/orderflow/internal/outbox/domain"
)

// fromStatuses returns the two statuses an Update may find on the stored row. A status with a
// single predecessor repeats it; a status without one yields values no row can match.
func fromStatuses(to domain.OutboxEventStatus) (domain.OutboxEventStatus, domain.OutboxEventStatus) {
	from := to.Predecessors()
	switch len(from) {
	case 0:
		return "", ""
	case 1:
		return from[0], from[0]
	default:
		return from[0], from[1]
	}
}

// requireTransition maps an update that matched no row to domain.ErrStaleEvent.
func requireTransition(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrStaleEvent
	}
	return nil
}
