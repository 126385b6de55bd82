package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/ports"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/db"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/log"
)

// Verification orchestrates presentation verification. It is stateless, all
// verification state lives on the Management record.
type Verification struct {
	storage          *db.Storage
	managementRepo   ports.ManagementRepository
	callbackProducer ports.CallbackProducer
	registry         ports.VerifierRegistry
}

// NewVerification creates a Verification service
func NewVerification(storage *db.Storage, managementRepo ports.ManagementRepository, callbackProducer ports.CallbackProducer, registry ports.VerifierRegistry) ports.VerificationService {
	return &Verification{
		storage:          storage,
		managementRepo:   managementRepo,
		callbackProducer: callbackProducer,
		registry:         registry,
	}
}

// ProcessWalletResponse validates a wallet submission against the pending
// verification request and closes the request with exactly one terminal
// transition. The transition and its outbox event commit in one transaction.
// A submission against a closed or expired request is rejected without
// touching the record.
func (s *Verification) ProcessWalletResponse(ctx context.Context, managementID uuid.UUID, response ports.WalletResponse) (*domain.Management, error) {
	management, err := s.managementRepo.GetByID(ctx, s.storage.Pgx, managementID)
	if err != nil {
		return nil, err
	}
	if !management.IsPending() || management.IsExpired() {
		return nil, domain.NewVerificationError(domain.ErrVerificationProcessClosed, "verification process is closed")
	}

	switch {
	case response.Error != "":
		management.FailDueToClientRejection(response.ErrorDescription)
	case management.DcqlQuery != nil:
		claims, vErr := s.evaluateDcql(ctx, management, response.VPTokens)
		s.close(ctx, management, claims, vErr)
	case management.RequestedPresentation != nil:
		claims, vErr := s.verifyPresentationExchange(ctx, management, response)
		s.close(ctx, management, claims, vErr)
	default:
		return nil, domain.NewVerificationError(domain.ErrInvalidPresentationSubmission, "verification request declares nothing to present")
	}

	if err := s.commitTerminalState(ctx, management); err != nil {
		return nil, err
	}
	log.Info(ctx, "verification closed", "id", management.ID, "state", management.State)
	return management, nil
}

func (s *Verification) close(ctx context.Context, management *domain.Management, claims map[string]any, err error) {
	if err == nil {
		management.Succeed(claims)
		return
	}
	vErr := domain.AsVerificationError(err)
	log.Info(ctx, "verification failed", "id", management.ID, "code", vErr.Code, "description", vErr.Description)
	management.Fail(vErr.Code, vErr.Description)
}

func (s *Verification) commitTerminalState(ctx context.Context, management *domain.Management) error {
	return s.storage.Pgx.BeginFunc(ctx, func(tx pgx.Tx) error {
		if err := s.managementRepo.Update(ctx, tx, management); err != nil {
			return err
		}
		return s.callbackProducer.ProduceEvent(ctx, tx, management.ID)
	})
}
