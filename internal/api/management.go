package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/ports"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/services"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/log"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/repositories"
)

type createVerificationRequest struct {
	PresentationDefinition         *domain.PresentationDefinition `json:"presentation_definition,omitempty"`
	DcqlQuery                      *domain.DcqlQuery              `json:"dcql_query,omitempty"`
	JWTSecuredAuthorizationRequest *bool                          `json:"jwt_secured_authorization_request,omitempty"`
	ExpirationInSeconds            int64                          `json:"expiration_in_seconds,omitempty"`
	AcceptedIssuerDIDs             []string                       `json:"accepted_issuer_dids,omitempty"`
	TrustAnchors                   []domain.TrustAnchor           `json:"trust_anchors,omitempty"`
}

type verificationResponse struct {
	ID                             uuid.UUID            `json:"id"`
	RequestNonce                   string               `json:"request_nonce"`
	State                          string               `json:"state"`
	JWTSecuredAuthorizationRequest bool                 `json:"jwt_secured_authorization_request"`
	VerificationURL                string               `json:"verification_url"`
	WalletResponse                 *domain.ResponseData `json:"wallet_response,omitempty"`
}

func (s *Server) createVerification(w http.ResponseWriter, r *http.Request) {
	var req createVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	management, err := s.management.Create(r.Context(), ports.CreateManagementRequest{
		PresentationDefinition:         req.PresentationDefinition,
		DcqlQuery:                      req.DcqlQuery,
		JWTSecuredAuthorizationRequest: req.JWTSecuredAuthorizationRequest,
		TTL:                            time.Duration(req.ExpirationInSeconds) * time.Second,
		AcceptedIssuerDIDs:             req.AcceptedIssuerDIDs,
		TrustAnchors:                   req.TrustAnchors,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidManagementRequest) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		log.Error(r.Context(), "creating verification request", "err", err)
		writeError(w, r, http.StatusInternalServerError, "could not create the verification request")
		return
	}
	writeJSON(w, r, http.StatusCreated, s.toVerificationResponse(management))
}

func (s *Server) getVerification(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "id is not a valid uuid")
		return
	}
	management, err := s.management.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrManagementNotFound) {
			writeError(w, r, http.StatusNotFound, "verification request not found")
			return
		}
		log.Error(r.Context(), "loading verification request", "err", err, "id", id)
		writeError(w, r, http.StatusInternalServerError, "could not load the verification request")
		return
	}
	writeJSON(w, r, http.StatusOK, s.toVerificationResponse(management))
}

func (s *Server) toVerificationResponse(management *domain.Management) verificationResponse {
	return verificationResponse{
		ID:                             management.ID,
		RequestNonce:                   management.RequestNonce,
		State:                          string(management.State),
		JWTSecuredAuthorizationRequest: management.JWTSecuredAuthorizationRequest,
		VerificationURL:                fmt.Sprintf("%s/oid4vp/api/request-object/%s", s.cfg.ExternalURL, management.ID),
		WalletResponse:                 management.WalletResponse,
	}
}
