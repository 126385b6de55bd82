package ports

import (
	"context"
	"crypto"
)

// DIDResolver resolves the public key a DID controls. keyID is the full
// verification method reference, did#fragment.
type DIDResolver interface {
	ResolveKey(ctx context.Context, keyID string) (crypto.PublicKey, error)
}
