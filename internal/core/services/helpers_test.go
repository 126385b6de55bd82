package services

import (
	"bytes"
	"compress/zlib"
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/ports"
)

const (
	testIssuerDID = "did:example:issuer"
	testIssuerKID = "did:example:issuer#key-1"
)

func genES256Key(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

// fakeDIDResolver resolves keys from a static map
type fakeDIDResolver struct {
	keys map[string]crypto.PublicKey
}

func (f *fakeDIDResolver) ResolveKey(_ context.Context, keyID string) (crypto.PublicKey, error) {
	key, ok := f.keys[keyID]
	if !ok {
		return nil, errors.Errorf("no key for %s", keyID)
	}
	return key, nil
}

// passingStatusVerifier accepts every credential
type passingStatusVerifier struct{}

func (passingStatusVerifier) VerifyStatus(context.Context, map[string]any, string) error {
	return nil
}

// fakeStatusListResolver serves status list tokens from memory
type fakeStatusListResolver struct {
	tokens map[string]string
}

func (f *fakeStatusListResolver) Resolve(_ context.Context, uri string) (string, error) {
	token, ok := f.tokens[uri]
	if !ok {
		return "", errors.Errorf("unknown status list %s", uri)
	}
	return token, nil
}

// countingVerifier hands out canned claims per token and counts how often
// cryptographic verification ran
type countingVerifier struct {
	claims map[string]map[string]any
	calls  int
}

func (c *countingVerifier) Format() string { return FormatSdJWT }

func (c *countingVerifier) Verify(_ context.Context, token string, _ *domain.Management) (*ports.VerifiedCredential, error) {
	c.calls++
	claims, ok := c.claims[token]
	if !ok {
		return nil, domain.NewVerificationError(domain.ErrCredentialInvalid, "credential could not be verified")
	}
	return &ports.VerifiedCredential{Issuer: testIssuerDID, Claims: claims}, nil
}

type disclosureSpec struct {
	salt  string
	name  string
	value any
}

// buildSdJWT assembles a signed SD-JWT presentation: the given claims stay
// plain, the disclosures are moved behind _sd digests.
func buildSdJWT(t *testing.T, issuerKey *ecdsa.PrivateKey, claims map[string]any, disclosures []disclosureSpec) string {
	t.Helper()

	payload := map[string]any{}
	for name, value := range claims {
		payload[name] = value
	}
	var rawDisclosures []string
	var digests []any
	for _, spec := range disclosures {
		data, err := json.Marshal([]any{spec.salt, spec.name, spec.value})
		require.NoError(t, err)
		raw := base64.RawURLEncoding.EncodeToString(data)
		rawDisclosures = append(rawDisclosures, raw)
		sum := sha256Sum(raw)
		digests = append(digests, sum)
	}
	if len(digests) > 0 {
		payload["_sd"] = digests
		payload["_sd_alg"] = "sha-256"
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims(payload))
	token.Header["kid"] = testIssuerKID
	token.Header["typ"] = "vc+sd-jwt"
	signed, err := token.SignedString(issuerKey)
	require.NoError(t, err)

	presentation := signed + "~"
	for _, raw := range rawDisclosures {
		presentation += raw + "~"
	}
	return presentation
}

func sha256Sum(raw string) string {
	d := domain.Disclosure{Raw: raw}
	return d.Digest()
}

// appendKeyBinding signs a kb+jwt over the presentation with the holder key
func appendKeyBinding(t *testing.T, presentation string, holderKey *ecdsa.PrivateKey, nonce string, issuedAt time.Time) string {
	t.Helper()
	sd, err := domain.ParseSdJWT(presentation)
	require.NoError(t, err)

	kb := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"nonce":   nonce,
		"aud":     "https://verifier.example.com",
		"iat":     issuedAt.Unix(),
		"sd_hash": sd.SdHash(),
	})
	kb.Header["typ"] = "kb+jwt"
	signed, err := kb.SignedString(holderKey)
	require.NoError(t, err)
	return presentation + signed
}

func cnfClaim(t *testing.T, holderKey *ecdsa.PrivateKey) map[string]any {
	t.Helper()
	jwk := jose.JSONWebKey{Key: &holderKey.PublicKey}
	data, err := jwk.MarshalJSON()
	require.NoError(t, err)
	var asMap map[string]any
	require.NoError(t, json.Unmarshal(data, &asMap))
	return map[string]any{"jwk": asMap}
}

func pendingManagement(t *testing.T, acceptedIssuers []string) *domain.Management {
	t.Helper()
	management, err := domain.NewManagement(&domain.PresentationDefinition{ID: "definition-1"}, nil, 15*time.Minute, true, acceptedIssuers, nil)
	require.NoError(t, err)
	return management
}

// encodeStatusList packs and compresses status values for a fake provider
func encodeStatusList(t *testing.T, bits int, values []int) string {
	t.Helper()
	packed := make([]byte, (len(values)*bits+7)/8)
	for i, v := range values {
		packed[i*bits/8] |= byte(v) << ((i * bits) % 8)
	}
	var compressed bytes.Buffer
	writer := zlib.NewWriter(&compressed)
	_, err := writer.Write(packed)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return base64.RawURLEncoding.EncodeToString(compressed.Bytes())
}

// buildStatusListToken signs a statuslist+jwt the way a status provider would
func buildStatusListToken(t *testing.T, issuerKey *ecdsa.PrivateKey, issuer, uri string, bits int, values []int) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": issuer,
		"sub": uri,
		"iat": time.Now().Unix(),
		"status_list": map[string]any{
			"bits": bits,
			"lst":  encodeStatusList(t, bits, values),
		},
	})
	token.Header["kid"] = testIssuerKID
	token.Header["typ"] = "statuslist+jwt"
	signed, err := token.SignedString(issuerKey)
	require.NoError(t, err)
	return signed
}
