package repositories

import (
	"context"
	"time"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/ports"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/db"
)

// LockRepository implements a lease table for cluster wide mutual exclusion
// of scheduled jobs. A lock row is taken over either when it is free or when
// its lease has expired, in one compare and swap statement.
type LockRepository struct{}

// NewLock creates a new LockRepository
func NewLock() ports.LockRepository {
	return &LockRepository{}
}

// Acquire takes the named lock for owner until now+leaseFor. It returns
// false without error when another live holder owns the lock.
func (r *LockRepository) Acquire(ctx context.Context, conn db.Querier, name string, owner string, leaseFor time.Duration) (bool, error) {
	now := time.Now()
	sql := `INSERT INTO scheduler_locks (name, locked_by, locked_at, locked_until)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO UPDATE
			SET locked_by = $2, locked_at = $3, locked_until = $4
			WHERE scheduler_locks.locked_until <= $3`

	tag, err := conn.Exec(ctx, sql, name, owner, now, now.Add(leaseFor))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Release ends the lease early so the next cycle does not have to wait for
// it to expire. Only the current owner can release.
func (r *LockRepository) Release(ctx context.Context, conn db.Querier, name string, owner string) error {
	sql := `UPDATE scheduler_locks SET locked_until = locked_at WHERE name = $1 AND locked_by = $2`
	_, err := conn.Exec(ctx, sql, name, owner)
	return err
}
