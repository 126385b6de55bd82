package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/db"
)

// CallbackRepository is the storage of pending webhook outbox events.
// FindForDispatch must lock the returned rows and skip rows locked by a
// concurrent dispatcher, so it has to run inside the transaction that also
// deletes the delivered events.
type CallbackRepository interface {
	Save(ctx context.Context, conn db.Querier, event *domain.CallbackEvent) error
	FindForDispatch(ctx context.Context, conn db.Querier, limit int) ([]*domain.CallbackEvent, error)
	Delete(ctx context.Context, conn db.Querier, id uuid.UUID) error
}
