package ports

import (
	"context"
	"time"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/db"
)

// LockRepository is a named, time bounded lock shared by all replicas.
// Acquire returns false when another holder owns the lock and its lease has
// not expired yet. The lease expires on its own, so a crashed holder never
// deadlocks the fleet.
type LockRepository interface {
	Acquire(ctx context.Context, conn db.Querier, name string, owner string, leaseFor time.Duration) (bool, error)
	Release(ctx context.Context, conn db.Querier, name string, owner string) error
}
