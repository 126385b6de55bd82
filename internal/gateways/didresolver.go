package gateways

import (
	"context"
	"crypto"
	"encoding/json"
	"net/url"
	"strings"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/pkg/errors"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/ports"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/httpclient"
)

// DIDResolverGateway resolves DID documents through a universal resolver
// endpoint and extracts the public key of a verification method.
type DIDResolverGateway struct {
	client  *httpclient.Client
	baseURL string
}

// NewDIDResolver creates a DIDResolverGateway talking to baseURL
func NewDIDResolver(client *httpclient.Client, baseURL string) ports.DIDResolver {
	return &DIDResolverGateway{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

type didDocument struct {
	ID                 string               `json:"id"`
	VerificationMethod []verificationMethod `json:"verificationMethod"`
}

type verificationMethod struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	PublicKeyJwk json.RawMessage `json:"publicKeyJwk"`
}

type resolverResponse struct {
	DIDDocument *didDocument `json:"didDocument"`
}

// ResolveKey fetches the DID document for the DID part of keyID and returns
// the public key of the verification method keyID names. A keyID without a
// fragment selects the document's first verification method.
func (g *DIDResolverGateway) ResolveKey(ctx context.Context, keyID string) (crypto.PublicKey, error) {
	did, _, _ := strings.Cut(keyID, "#")
	if !strings.HasPrefix(did, "did:") {
		return nil, errors.Errorf("%q is not a DID", did)
	}

	body, err := g.client.Get(ctx, g.baseURL+"/1.0/identifiers/"+url.PathEscape(did), 0, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving DID %s", did)
	}

	doc := &didDocument{}
	// universal resolvers wrap the document, local resolvers return it plain
	var wrapped resolverResponse
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.DIDDocument != nil {
		doc = wrapped.DIDDocument
	} else if err := json.Unmarshal(body, doc); err != nil {
		return nil, errors.Wrapf(err, "DID document of %s is not JSON", did)
	}

	method, err := selectVerificationMethod(doc, keyID)
	if err != nil {
		return nil, err
	}
	var jwk jose.JSONWebKey
	if err := json.Unmarshal(method.PublicKeyJwk, &jwk); err != nil {
		return nil, errors.Wrapf(err, "verification method %s has no usable JWK", method.ID)
	}
	if !jwk.Valid() || !jwk.IsPublic() {
		return nil, errors.Errorf("verification method %s carries an invalid public key", method.ID)
	}
	return jwk.Key, nil
}

func selectVerificationMethod(doc *didDocument, keyID string) (*verificationMethod, error) {
	if len(doc.VerificationMethod) == 0 {
		return nil, errors.Errorf("DID document %s has no verification methods", doc.ID)
	}
	if !strings.Contains(keyID, "#") {
		return &doc.VerificationMethod[0], nil
	}
	for i := range doc.VerificationMethod {
		if doc.VerificationMethod[i].ID == keyID {
			return &doc.VerificationMethod[i], nil
		}
	}
	return nil, errors.Errorf("verification method %s not found in DID document", keyID)
}
