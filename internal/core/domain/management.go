package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// VerificationState is the lifecycle state of a verification request.
type VerificationState string

const (
	StatePending VerificationState = "PENDING"
	StateSuccess VerificationState = "SUCCESS"
	StateFailed  VerificationState = "FAILED"
)

const nonceSize = 24

// TrustAnchor is an additional trust root accepted for a single verification
// request next to the plain issuer DID allow-list.
type TrustAnchor struct {
	DID                  string `json:"did"`
	TrustRegistryURI     string `json:"trust_registry_uri,omitempty"`
	CanIssueCredentials  bool   `json:"can_issue"`
	CanVerifyCredentials bool   `json:"can_verify"`
}

// ResponseData is the terminal outcome of a verification. ErrorCode and
// CredentialSubjectData are mutually exclusive.
type ResponseData struct {
	ErrorCode             *VerificationErrorCode `json:"error_code,omitempty"`
	ErrorDescription      string                 `json:"error_description,omitempty"`
	CredentialSubjectData map[string]any         `json:"credential_subject_data,omitempty"`
}

// Management is one verification request: the verifier side record that a
// wallet responds to. WalletResponse is nil exactly while the state is
// PENDING; a terminal record is immutable until the expiry sweep deletes it.
type Management struct {
	ID                             uuid.UUID
	RequestNonce                   string
	State                          VerificationState
	JWTSecuredAuthorizationRequest bool
	RequestedPresentation          *PresentationDefinition
	DcqlQuery                      *DcqlQuery
	WalletResponse                 *ResponseData
	AcceptedIssuerDIDs             []string
	TrustAnchors                   []TrustAnchor
	ExpirationInSeconds            int64
	ExpiresAt                      time.Time
	CreatedAt                      time.Time
}

// NewManagement creates a PENDING verification request with a fresh nonce.
// Exactly one of definition and query must be non-nil; the caller validates
// that before constructing.
func NewManagement(definition *PresentationDefinition, query *DcqlQuery, ttl time.Duration, jwtSecured bool, acceptedIssuerDIDs []string, trustAnchors []TrustAnchor) (*Management, error) {
	nonce, err := createNonce()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Management{
		ID:                             uuid.New(),
		RequestNonce:                   nonce,
		State:                          StatePending,
		JWTSecuredAuthorizationRequest: jwtSecured,
		RequestedPresentation:          definition,
		DcqlQuery:                      query,
		AcceptedIssuerDIDs:             acceptedIssuerDIDs,
		TrustAnchors:                   trustAnchors,
		ExpirationInSeconds:            int64(ttl.Seconds()),
		ExpiresAt:                      now.Add(ttl),
		CreatedAt:                      now,
	}, nil
}

// IsPending tells whether the request still accepts a wallet response.
func (m *Management) IsPending() bool {
	return m.State == StatePending
}

// IsExpired tells whether the request deadline has passed.
func (m *Management) IsExpired() bool {
	return time.Now().After(m.ExpiresAt)
}

// Succeed closes the request with the verified claims. Closing an already
// terminal request is a no-op that keeps the first outcome.
func (m *Management) Succeed(credentialSubjectData map[string]any) {
	if !m.IsPending() {
		return
	}
	m.State = StateSuccess
	m.WalletResponse = &ResponseData{CredentialSubjectData: credentialSubjectData}
}

// Fail closes the request with an error outcome. Closing an already terminal
// request is a no-op that keeps the first outcome.
func (m *Management) Fail(code VerificationErrorCode, description string) {
	if !m.IsPending() {
		return
	}
	m.State = StateFailed
	m.WalletResponse = &ResponseData{ErrorCode: &code, ErrorDescription: description}
}

// FailDueToClientRejection closes the request because the holder declined to
// present at the wallet.
func (m *Management) FailDueToClientRejection(description string) {
	m.Fail(ErrClientRejected, description)
}

// createNonce returns 24 random bytes, base64 encoded without padding.
func createNonce() (string, error) {
	b := make([]byte, nonceSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.WithPadding(base64.NoPadding).EncodeToString(b), nil
}
