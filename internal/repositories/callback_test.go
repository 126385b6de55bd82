package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
)

func TestCallbackRepositoryOutboxCycle(t *testing.T) {
	requireStorage(t)
	ctx := context.Background()
	repo := NewCallback()

	event := domain.NewCallbackEvent(uuid.New())
	require.NoError(t, repo.Save(ctx, storage.Pgx, event))

	tx, err := storage.Pgx.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	events, err := repo.FindForDispatch(ctx, tx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, events)

	found := false
	for _, e := range events {
		if e.ID == event.ID {
			found = true
			assert.Equal(t, event.VerificationID, e.VerificationID)
		}
	}
	assert.True(t, found)

	require.NoError(t, repo.Delete(ctx, tx, event.ID))
	require.NoError(t, tx.Commit(ctx))

	remaining, err := repo.FindForDispatch(ctx, storage.Pgx, 10)
	require.NoError(t, err)
	for _, e := range remaining {
		assert.NotEqual(t, event.ID, e.ID)
	}
}

func TestCallbackRepositorySkipsLockedRows(t *testing.T) {
	requireStorage(t)
	ctx := context.Background()
	repo := NewCallback()

	event := domain.NewCallbackEvent(uuid.New())
	require.NoError(t, repo.Save(ctx, storage.Pgx, event))

	tx1, err := storage.Pgx.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx1.Rollback(ctx) }()

	locked, err := repo.FindForDispatch(ctx, tx1, 100)
	require.NoError(t, err)
	require.NotEmpty(t, locked)

	// a concurrent dispatcher must not see rows held by tx1
	tx2, err := storage.Pgx.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx2.Rollback(ctx) }()

	concurrent, err := repo.FindForDispatch(ctx, tx2, 100)
	require.NoError(t, err)
	assert.Empty(t, concurrent)
}
