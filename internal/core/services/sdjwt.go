package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/ports"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/log"
)

// FormatSdJWT is the format identifier of the SD-JWT credential family.
const FormatSdJWT = "vc+sd-jwt"

const keyBindingTokenType = "kb+jwt"

var errIssuerKeyUnresolvable = errors.New("issuer key unresolvable")

// SdJWTVerifierConfig tunes SD-JWT verification.
type SdJWTVerifierConfig struct {
	// AcceptedAlgorithms is the signing algorithm allow-list for issuer and key binding JWTs.
	AcceptedAlgorithms []string
	// ProofTimeWindow bounds how far a key binding proof's iat may deviate from now.
	ProofTimeWindow time.Duration
}

// SdJWTVerifier validates SD-JWT verifiable credentials: issuer signature,
// timing, selective disclosures, issuer trust, holder key binding and
// revocation status.
type SdJWTVerifier struct {
	didResolver ports.DIDResolver
	statusList  ports.StatusListVerifier
	cfg         SdJWTVerifierConfig
}

// NewSdJWTVerifier creates a SdJWTVerifier
func NewSdJWTVerifier(didResolver ports.DIDResolver, statusList ports.StatusListVerifier, cfg SdJWTVerifierConfig) ports.CredentialVerifier {
	return &SdJWTVerifier{didResolver: didResolver, statusList: statusList, cfg: cfg}
}

// Format returns the format identifier this verifier is registered under
func (v *SdJWTVerifier) Format() string {
	return FormatSdJWT
}

// Verify runs the full SD-JWT verification chain and returns the disclosed
// claims with the issuer identity. Every failure is a typed verification
// error that never carries cryptographic internals.
func (v *SdJWTVerifier) Verify(ctx context.Context, token string, management *domain.Management) (*ports.VerifiedCredential, error) {
	sdJWT, err := domain.ParseSdJWT(token)
	if err != nil {
		return nil, domain.NewVerificationError(domain.ErrMalformedCredential, "token is not a valid SD-JWT")
	}

	payload := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(sdJWT.IssuerJWT, payload, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			kid, _ = payload["iss"].(string)
		}
		key, resolveErr := v.didResolver.ResolveKey(ctx, kid)
		if resolveErr != nil {
			log.Warn(ctx, "issuer key resolution failed", "err", resolveErr, "kid", kid)
			return nil, errIssuerKeyUnresolvable
		}
		return key, nil
	}, jwt.WithValidMethods(v.cfg.AcceptedAlgorithms), jwt.WithIssuedAt())
	if err != nil {
		return nil, mapIssuerJWTError(err)
	}

	issuer, _ := payload["iss"].(string)
	if issuer == "" {
		return nil, domain.NewVerificationError(domain.ErrMalformedCredential, "credential has no issuer")
	}
	if err := checkIssuerAccepted(issuer, management); err != nil {
		return nil, err
	}

	claims, err := sdJWT.ResolveClaims(payload)
	if err != nil {
		return nil, domain.NewVerificationError(domain.ErrMalformedCredential, "disclosures do not match the credential")
	}

	if err := v.verifyKeyBinding(sdJWT, payload, management); err != nil {
		return nil, err
	}

	if err := v.statusList.VerifyStatus(ctx, claims, issuer); err != nil {
		return nil, err
	}

	return &ports.VerifiedCredential{Issuer: issuer, Claims: claims}, nil
}

func mapIssuerJWTError(err error) *domain.VerificationError {
	switch {
	case errors.Is(err, errIssuerKeyUnresolvable):
		return domain.NewVerificationError(domain.ErrIssuerKeyUnresolvable, "public key of the issuer could not be resolved")
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.NewVerificationError(domain.ErrJWTExpired, "credential is expired")
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return domain.NewVerificationError(domain.ErrJWTPremature, "credential is not yet valid")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.NewVerificationError(domain.ErrCredentialInvalid, "credential signature is invalid")
	case errors.Is(err, jwt.ErrTokenMalformed):
		return domain.NewVerificationError(domain.ErrMalformedCredential, "credential is malformed")
	default:
		return domain.NewVerificationError(domain.ErrCredentialInvalid, "credential could not be verified")
	}
}

func checkIssuerAccepted(issuer string, management *domain.Management) error {
	accepted := make([]string, 0, len(management.AcceptedIssuerDIDs)+len(management.TrustAnchors))
	accepted = append(accepted, management.AcceptedIssuerDIDs...)
	for _, anchor := range management.TrustAnchors {
		accepted = append(accepted, anchor.DID)
	}
	if len(accepted) == 0 {
		return nil
	}
	for _, did := range accepted {
		if did == issuer {
			return nil
		}
	}
	return domain.NewVerificationError(domain.ErrIssuerNotAccepted, "issuer %s is not accepted for this verification", issuer)
}

// verifyKeyBinding checks the holder proof of possession. A credential
// without a cnf claim requires no key binding; one with a cnf claim must be
// presented with a kb+jwt bound to the request nonce and the presented
// disclosure set.
func (v *SdJWTVerifier) verifyKeyBinding(sdJWT *domain.SdJWT, payload jwt.MapClaims, management *domain.Management) error {
	cnf, hasCnf := payload["cnf"].(map[string]any)
	if !hasCnf {
		return nil
	}
	if sdJWT.KeyBindingJWT == "" {
		return domain.NewVerificationError(domain.ErrHolderBindingMismatch, "credential requires a key binding proof")
	}

	holderKey, err := holderKeyFromCnf(cnf)
	if err != nil {
		return domain.NewVerificationError(domain.ErrMalformedCredential, "credential carries an unusable holder key")
	}

	kbClaims := jwt.MapClaims{}
	kbToken, err := jwt.ParseWithClaims(sdJWT.KeyBindingJWT, kbClaims, func(t *jwt.Token) (any, error) {
		return holderKey, nil
	}, jwt.WithValidMethods(v.cfg.AcceptedAlgorithms))
	if err != nil {
		return domain.NewVerificationError(domain.ErrHolderBindingMismatch, "key binding proof is invalid")
	}
	if typ, _ := kbToken.Header["typ"].(string); typ != keyBindingTokenType {
		return domain.NewVerificationError(domain.ErrHolderBindingMismatch, "key binding proof has the wrong type")
	}

	nonce, _ := kbClaims["nonce"].(string)
	if nonce == "" {
		return domain.NewVerificationError(domain.ErrMissingNonce, "key binding proof carries no nonce")
	}
	if nonce != management.RequestNonce {
		return domain.NewVerificationError(domain.ErrHolderBindingMismatch, "key binding nonce does not match the request")
	}
	if sdHash, _ := kbClaims["sd_hash"].(string); sdHash != sdJWT.SdHash() {
		return domain.NewVerificationError(domain.ErrHolderBindingMismatch, "key binding proof does not cover the presented disclosures")
	}

	iat, ok := kbClaims["iat"].(float64)
	if !ok {
		return domain.NewVerificationError(domain.ErrHolderBindingMismatch, "key binding proof carries no issuance time")
	}
	issuedAt := time.Unix(int64(iat), 0)
	if delta := time.Since(issuedAt); delta > v.cfg.ProofTimeWindow || delta < -v.cfg.ProofTimeWindow {
		return domain.NewVerificationError(domain.ErrHolderBindingMismatch, "key binding proof is outside the accepted time window")
	}
	return nil
}

func holderKeyFromCnf(cnf map[string]any) (any, error) {
	jwkData, ok := cnf["jwk"]
	if !ok {
		return nil, errors.New("cnf claim has no jwk")
	}
	raw, err := json.Marshal(jwkData)
	if err != nil {
		return nil, err
	}
	var jwk jose.JSONWebKey
	if err := json.Unmarshal(raw, &jwk); err != nil {
		return nil, err
	}
	if !jwk.Valid() || !jwk.IsPublic() {
		return nil, errors.New("cnf jwk is not a valid public key")
	}
	return jwk.Key, nil
}
