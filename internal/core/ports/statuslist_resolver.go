package ports

import "context"

// StatusListResolver fetches the raw status list token behind an uri,
// enforcing transport, host allow-list and size limits.
type StatusListResolver interface {
	Resolve(ctx context.Context, uri string) (string, error)
}

// StatusListVerifier resolves and decodes the status list references of a
// verified credential and returns the typed verification error when the
// credential is revoked, suspended or its list cannot be resolved.
type StatusListVerifier interface {
	VerifyStatus(ctx context.Context, claims map[string]any, issuer string) error
}
