package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
)

// WalletResponse is the raw submission a wallet posts back for a pending
// verification request. Either VPToken plus an optional presentation
// submission for the PE flow, a query id keyed token list map for the DCQL
// flow, or an error when the holder rejected at the wallet.
type WalletResponse struct {
	VPToken                string
	VPTokens               map[string][]string
	PresentationSubmission *domain.PresentationSubmission
	Error                  string
	ErrorDescription       string
}

// VerificationService orchestrates presentation verification: it validates
// the submitted tokens, matches them against the requested presentation and
// closes the verification request with exactly one terminal transition.
type VerificationService interface {
	ProcessWalletResponse(ctx context.Context, managementID uuid.UUID, response WalletResponse) (*domain.Management, error)
}
