package services

import (
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/ports"
)

// VerifierRegistry maps a credential format identifier to its verification
// strategy. New formats register here without the orchestrator changing.
type VerifierRegistry struct {
	verifiers map[string]ports.CredentialVerifier
}

// NewVerifierRegistry creates a registry over the given verifiers
func NewVerifierRegistry(verifiers ...ports.CredentialVerifier) ports.VerifierRegistry {
	byFormat := make(map[string]ports.CredentialVerifier, len(verifiers))
	for _, v := range verifiers {
		byFormat[v.Format()] = v
	}
	return &VerifierRegistry{verifiers: byFormat}
}

// DCQL names the SD-JWT family dc+sd-jwt while Presentation Exchange uses
// vc+sd-jwt; both resolve to the same strategy.
var formatAliases = map[string]string{
	"dc+sd-jwt": FormatSdJWT,
}

// ForFormat returns the verifier registered for format
func (r *VerifierRegistry) ForFormat(format string) (ports.CredentialVerifier, error) {
	if target, ok := formatAliases[format]; ok {
		format = target
	}
	verifier, ok := r.verifiers[format]
	if !ok {
		return nil, domain.NewVerificationError(domain.ErrUnsupportedFormat, "credential format %q is not supported", format)
	}
	return verifier, nil
}
