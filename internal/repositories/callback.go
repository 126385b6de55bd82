package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/ports"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/db"
)

// CallbackRepository is the postgres storage of webhook outbox events
type CallbackRepository struct{}

// NewCallback creates a new CallbackRepository
func NewCallback() ports.CallbackRepository {
	return &CallbackRepository{}
}

// Save stores an outbox event. Callers pass the transaction that also
// commits the terminal state transition.
func (r *CallbackRepository) Save(ctx context.Context, conn db.Querier, event *domain.CallbackEvent) error {
	sql := `INSERT INTO callback_events (id, verification_id, timestamp) VALUES ($1, $2, $3)`
	_, err := conn.Exec(ctx, sql, event.ID, event.VerificationID, event.Timestamp)
	return err
}

// FindForDispatch returns up to limit pending events, locking them for the
// current transaction and skipping rows a concurrent dispatcher already
// holds.
func (r *CallbackRepository) FindForDispatch(ctx context.Context, conn db.Querier, limit int) ([]*domain.CallbackEvent, error) {
	sql := `SELECT id, verification_id, timestamp
			FROM callback_events
			ORDER BY timestamp
			LIMIT $1
			FOR UPDATE SKIP LOCKED`

	rows, err := conn.Query(ctx, sql, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.CallbackEvent
	for rows.Next() {
		var event domain.CallbackEvent
		if err := rows.Scan(&event.ID, &event.VerificationID, &event.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

// Delete removes a delivered event
func (r *CallbackRepository) Delete(ctx context.Context, conn db.Querier, id uuid.UUID) error {
	_, err := conn.Exec(ctx, `DELETE FROM callback_events WHERE id = $1`, id)
	return err
}
