package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
)

// CreateManagementRequest carries everything needed to open a verification
// request. Exactly one of PresentationDefinition and DcqlQuery must be set.
type CreateManagementRequest struct {
	PresentationDefinition         *domain.PresentationDefinition
	DcqlQuery                      *domain.DcqlQuery
	JWTSecuredAuthorizationRequest *bool
	TTL                            time.Duration
	AcceptedIssuerDIDs             []string
	TrustAnchors                   []domain.TrustAnchor
}

// ManagementService owns the verification request lifecycle
type ManagementService interface {
	Create(ctx context.Context, req CreateManagementRequest) (*domain.Management, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Management, error)
	DeleteExpired(ctx context.Context) (int64, error)
}
