package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/db"
)

// ManagementRepository is the storage of verification requests
type ManagementRepository interface {
	Save(ctx context.Context, conn db.Querier, management *domain.Management) error
	GetByID(ctx context.Context, conn db.Querier, id uuid.UUID) (*domain.Management, error)
	Update(ctx context.Context, conn db.Querier, management *domain.Management) error
	Delete(ctx context.Context, conn db.Querier, id uuid.UUID) error
	DeleteExpired(ctx context.Context, conn db.Querier, now time.Time) (int64, error)
}
