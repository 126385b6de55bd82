package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/db"
)

// CallbackProducer records an outbox event for a verification that reached a
// terminal state. It must be called with the same transaction that commits
// the terminal transition.
type CallbackProducer interface {
	ProduceEvent(ctx context.Context, conn db.Querier, verificationID uuid.UUID) error
}

// CallbackDispatcher delivers pending outbox events to the configured
// webhook endpoint. Failed deliveries stay queued and are retried on the
// next cycle.
type CallbackDispatcher interface {
	DispatchPending(ctx context.Context) error
}
