package domain

import (
	"errors"
	"fmt"
)

// VerificationErrorCode is the taxonomy of failure codes reported back to the
// business verifier in a terminal FAILED response.
type VerificationErrorCode string

const (
	ErrCredentialInvalid             VerificationErrorCode = "credential_invalid"
	ErrJWTExpired                    VerificationErrorCode = "jwt_expired"
	ErrJWTPremature                  VerificationErrorCode = "jwt_premature"
	ErrInvalidFormat                 VerificationErrorCode = "invalid_format"
	ErrCredentialExpired             VerificationErrorCode = "credential_expired"
	ErrMissingNonce                  VerificationErrorCode = "missing_nonce"
	ErrUnsupportedFormat             VerificationErrorCode = "unsupported_format"
	ErrCredentialRevoked             VerificationErrorCode = "credential_revoked"
	ErrCredentialSuspended           VerificationErrorCode = "credential_suspended"
	ErrHolderBindingMismatch         VerificationErrorCode = "holder_binding_mismatch"
	ErrUnresolvableStatusList        VerificationErrorCode = "unresolvable_status_list"
	ErrIssuerKeyUnresolvable         VerificationErrorCode = "public_key_of_issuer_unresolvable"
	ErrClientRejected                VerificationErrorCode = "client_rejected"
	ErrIssuerNotAccepted             VerificationErrorCode = "issuer_not_accepted"
	ErrAuthzRequestObjectNotFound    VerificationErrorCode = "authorization_request_object_not_found"
	ErrVerificationProcessClosed     VerificationErrorCode = "verification_process_closed"
	ErrMalformedCredential           VerificationErrorCode = "malformed_credential"
	ErrInvalidPresentationSubmission VerificationErrorCode = "invalid_presentation_submission"
	ErrSubmissionConstraintViolated  VerificationErrorCode = "presentation_submission_constraint_violated"
)

// VerificationError is the typed failure raised anywhere inside credential
// verification. It carries the taxonomy code for the terminal response and a
// description safe to show to the business verifier.
type VerificationError struct {
	Code        VerificationErrorCode
	Description string
}

func (e *VerificationError) Error() string {
	if e.Description == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// NewVerificationError builds a VerificationError with a formatted description.
func NewVerificationError(code VerificationErrorCode, format string, args ...any) *VerificationError {
	return &VerificationError{Code: code, Description: fmt.Sprintf(format, args...)}
}

// AsVerificationError maps any error into a VerificationError. Errors that
// are not already typed become credential_invalid with a generic description,
// so internal details never leak into the terminal response.
func AsVerificationError(err error) *VerificationError {
	if err == nil {
		return nil
	}
	var vErr *VerificationError
	if errors.As(err, &vErr) {
		return vErr
	}
	return &VerificationError{Code: ErrCredentialInvalid, Description: "credential verification failed"}
}
