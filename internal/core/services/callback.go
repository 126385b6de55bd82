package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/ports"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/db"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/gateways"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/log"
)

const dispatchBatchSize = 100

// CallbackProducer records outbox events for terminal verification states.
// Without a configured webhook endpoint it produces nothing.
type CallbackProducer struct {
	repo    ports.CallbackRepository
	enabled bool
}

// NewCallbackProducer creates a CallbackProducer. enabled is false when no
// callback endpoint is configured.
func NewCallbackProducer(repo ports.CallbackRepository, enabled bool) ports.CallbackProducer {
	return &CallbackProducer{repo: repo, enabled: enabled}
}

// ProduceEvent stores an outbox event using the caller's transaction, so the
// event and the terminal state commit or roll back together.
func (p *CallbackProducer) ProduceEvent(ctx context.Context, conn db.Querier, verificationID uuid.UUID) error {
	if !p.enabled {
		return nil
	}
	return p.repo.Save(ctx, conn, domain.NewCallbackEvent(verificationID))
}

// CallbackDispatcher delivers pending outbox events to the webhook endpoint
// with at-least-once semantics. Undeliverable events stay queued forever.
type CallbackDispatcher struct {
	storage *db.Storage
	repo    ports.CallbackRepository
	webhook *gateways.WebhookGateway
}

// NewCallbackDispatcher creates a CallbackDispatcher
func NewCallbackDispatcher(storage *db.Storage, repo ports.CallbackRepository, webhook *gateways.WebhookGateway) ports.CallbackDispatcher {
	return &CallbackDispatcher{storage: storage, repo: repo, webhook: webhook}
}

// DispatchPending fetches pending events with a locking read that skips rows
// held by concurrent replicas, delivers each one and deletes it on success.
// A failed delivery leaves its event for the next cycle.
func (d *CallbackDispatcher) DispatchPending(ctx context.Context) error {
	return d.storage.Pgx.BeginFunc(ctx, func(tx pgx.Tx) error {
		events, err := d.repo.FindForDispatch(ctx, tx, dispatchBatchSize)
		if err != nil {
			return err
		}
		for _, event := range events {
			if err := d.webhook.Deliver(ctx, event); err != nil {
				log.Warn(ctx, "callback delivery failed, keeping event", "err", err, "verification_id", event.VerificationID)
				continue
			}
			if err := d.repo.Delete(ctx, tx, event.ID); err != nil {
				return err
			}
			log.Debug(ctx, "callback delivered", "verification_id", event.VerificationID)
		}
		return nil
	})
}
