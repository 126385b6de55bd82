package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/ports"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/db"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/log"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/repositories"
)

// ErrInvalidManagementRequest is returned when a creation request does not
// carry exactly one of a presentation definition and a DCQL query.
var ErrInvalidManagementRequest = errors.New("exactly one of presentation_definition and dcql_query must be provided")

// Management owns the verification request lifecycle
type Management struct {
	storage    *db.Storage
	repo       ports.ManagementRepository
	defaultTTL time.Duration
	jwtSecured bool
}

// NewManagement creates a Management service
func NewManagement(storage *db.Storage, repo ports.ManagementRepository, defaultTTL time.Duration, jwtSecured bool) ports.ManagementService {
	return &Management{
		storage:    storage,
		repo:       repo,
		defaultTTL: defaultTTL,
		jwtSecured: jwtSecured,
	}
}

// Create opens a new PENDING verification request with a fresh nonce
func (s *Management) Create(ctx context.Context, req ports.CreateManagementRequest) (*domain.Management, error) {
	if (req.PresentationDefinition == nil) == (req.DcqlQuery == nil) {
		return nil, ErrInvalidManagementRequest
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	jwtSecured := s.jwtSecured
	if req.JWTSecuredAuthorizationRequest != nil {
		jwtSecured = *req.JWTSecuredAuthorizationRequest
	}

	management, err := domain.NewManagement(req.PresentationDefinition, req.DcqlQuery, ttl, jwtSecured, req.AcceptedIssuerDIDs, req.TrustAnchors)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, s.storage.Pgx, management); err != nil {
		return nil, err
	}
	log.Info(ctx, "verification request created", "id", management.ID, "expires_at", management.ExpiresAt)
	return management, nil
}

// Get returns a verification request. An expired request is deleted on read
// and reported as not found, so business verifiers never act on stale state.
func (s *Management) Get(ctx context.Context, id uuid.UUID) (*domain.Management, error) {
	management, err := s.repo.GetByID(ctx, s.storage.Pgx, id)
	if err != nil {
		return nil, err
	}
	if management.IsExpired() {
		if err := s.repo.Delete(ctx, s.storage.Pgx, id); err != nil {
			log.Error(ctx, "deleting expired verification request", "err", err, "id", id)
		}
		return nil, repositories.ErrManagementNotFound
	}
	return management, nil
}

// DeleteExpired sweeps all verification requests past their deadline,
// whatever their state. Abandoned pending requests are dropped, not retried.
func (s *Management) DeleteExpired(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteExpired(ctx, s.storage.Pgx, time.Now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Info(ctx, "expired verification requests removed", "count", removed)
	}
	return removed, nil
}
