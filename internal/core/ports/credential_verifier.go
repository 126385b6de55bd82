package ports

import (
	"context"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
)

// VerifiedCredential is the outcome of a successful credential verification:
// the flattened disclosed claims and the issuer that signed them.
type VerifiedCredential struct {
	Issuer string
	Claims map[string]any
}

// CredentialVerifier validates one presented token of a specific format.
// Implementations are registered by format identifier and resolved at
// request time.
type CredentialVerifier interface {
	Format() string
	Verify(ctx context.Context, token string, management *domain.Management) (*VerifiedCredential, error)
}

// VerifierRegistry resolves the CredentialVerifier for a declared format.
type VerifierRegistry interface {
	ForFormat(format string) (CredentialVerifier, error)
}
