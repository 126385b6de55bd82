package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/ports"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/db"
)

// ErrManagementNotFound is returned when a verification request does not exist
var ErrManagementNotFound = errors.New("verification request not found")

// ManagementRepository is the postgres storage of verification requests
type ManagementRepository struct{}

// NewManagement creates a new ManagementRepository
func NewManagement() ports.ManagementRepository {
	return &ManagementRepository{}
}

// Save stores a new verification request
func (r *ManagementRepository) Save(ctx context.Context, conn db.Querier, management *domain.Management) error {
	sql := `INSERT INTO management (id, request_nonce, state, jwt_secured_authorization_request, requested_presentation,
				dcql_query, wallet_response, accepted_issuer_dids, trust_anchors, expiration_in_seconds, expires_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	requestedPresentation, err := marshalNullable(management.RequestedPresentation)
	if err != nil {
		return err
	}
	dcqlQuery, err := marshalNullable(management.DcqlQuery)
	if err != nil {
		return err
	}
	walletResponse, err := marshalNullable(management.WalletResponse)
	if err != nil {
		return err
	}
	trustAnchors, err := marshalNullable(management.TrustAnchors)
	if err != nil {
		return err
	}

	_, err = conn.Exec(ctx, sql,
		management.ID,
		management.RequestNonce,
		management.State,
		management.JWTSecuredAuthorizationRequest,
		requestedPresentation,
		dcqlQuery,
		walletResponse,
		management.AcceptedIssuerDIDs,
		trustAnchors,
		management.ExpirationInSeconds,
		management.ExpiresAt.Unix(),
		management.CreatedAt,
	)
	return err
}

// GetByID returns a verification request by id
func (r *ManagementRepository) GetByID(ctx context.Context, conn db.Querier, id uuid.UUID) (*domain.Management, error) {
	sql := `SELECT id, request_nonce, state, jwt_secured_authorization_request, requested_presentation,
				dcql_query, wallet_response, accepted_issuer_dids, trust_anchors, expiration_in_seconds, expires_at, created_at
			FROM management
			WHERE id = $1`

	var (
		management            domain.Management
		requestedPresentation pgtype.JSONB
		dcqlQuery             pgtype.JSONB
		walletResponse        pgtype.JSONB
		trustAnchors          pgtype.JSONB
		expiresAt             int64
	)
	err := conn.QueryRow(ctx, sql, id).Scan(
		&management.ID,
		&management.RequestNonce,
		&management.State,
		&management.JWTSecuredAuthorizationRequest,
		&requestedPresentation,
		&dcqlQuery,
		&walletResponse,
		&management.AcceptedIssuerDIDs,
		&trustAnchors,
		&management.ExpirationInSeconds,
		&expiresAt,
		&management.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "no rows in result set") {
			return nil, ErrManagementNotFound
		}
		return nil, err
	}

	management.ExpiresAt = time.Unix(expiresAt, 0)
	if err := unmarshalNullable(requestedPresentation, &management.RequestedPresentation); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(dcqlQuery, &management.DcqlQuery); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(walletResponse, &management.WalletResponse); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(trustAnchors, &management.TrustAnchors); err != nil {
		return nil, err
	}
	return &management, nil
}

// Update persists the current state and wallet response of a verification
// request. The remaining columns are immutable after creation.
func (r *ManagementRepository) Update(ctx context.Context, conn db.Querier, management *domain.Management) error {
	sql := `UPDATE management SET state = $2, wallet_response = $3 WHERE id = $1`

	walletResponse, err := marshalNullable(management.WalletResponse)
	if err != nil {
		return err
	}
	tag, err := conn.Exec(ctx, sql, management.ID, management.State, walletResponse)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrManagementNotFound
	}
	return nil
}

// Delete removes a verification request
func (r *ManagementRepository) Delete(ctx context.Context, conn db.Querier, id uuid.UUID) error {
	_, err := conn.Exec(ctx, `DELETE FROM management WHERE id = $1`, id)
	return err
}

// DeleteExpired removes all verification requests past their deadline,
// whatever state they are in, and returns how many were removed.
func (r *ManagementRepository) DeleteExpired(ctx context.Context, conn db.Querier, now time.Time) (int64, error) {
	tag, err := conn.Exec(ctx, `DELETE FROM management WHERE expires_at < $1`, now.Unix())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// marshalNullable maps a possibly-nil domain value to a jsonb column. A nil
// pointer and an empty slice are stored as NULL.
func marshalNullable(v any) (pgtype.JSONB, error) {
	null := pgtype.JSONB{Status: pgtype.Null}
	if v == nil {
		return null, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return null, err
	}
	if string(data) == "null" || string(data) == "[]" {
		return null, nil
	}
	return pgtype.JSONB{Bytes: data, Status: pgtype.Present}, nil
}

func unmarshalNullable(column pgtype.JSONB, target any) error {
	if column.Status != pgtype.Present {
		return nil
	}
	return json.Unmarshal(column.Bytes, target)
}
