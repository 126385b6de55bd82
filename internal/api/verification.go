package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/ports"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/log"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/repositories"
)

type requestObject struct {
	ClientID               string                         `json:"client_id"`
	ResponseType           string                         `json:"response_type"`
	ResponseMode           string                         `json:"response_mode"`
	ResponseURI            string                         `json:"response_uri"`
	Nonce                  string                         `json:"nonce"`
	PresentationDefinition *domain.PresentationDefinition `json:"presentation_definition,omitempty"`
	DcqlQuery              *domain.DcqlQuery              `json:"dcql_query,omitempty"`
}

// getRequestObject hands the authorization request to the wallet. An expired
// or already closed verification no longer has a request object.
func (s *Server) getRequestObject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "id is not a valid uuid")
		return
	}
	management, err := s.management.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrManagementNotFound) {
			writeVerificationError(w, r, http.StatusNotFound, domain.ErrAuthzRequestObjectNotFound, "authorization request object not found")
			return
		}
		log.Error(r.Context(), "loading request object", "err", err, "id", id)
		writeError(w, r, http.StatusInternalServerError, "could not load the request object")
		return
	}
	if !management.IsPending() {
		writeVerificationError(w, r, http.StatusGone, domain.ErrVerificationProcessClosed, "verification process is closed")
		return
	}

	writeJSON(w, r, http.StatusOK, requestObject{
		ClientID:               s.cfg.ExternalURL,
		ResponseType:           "vp_token",
		ResponseMode:           "direct_post",
		ResponseURI:            fmt.Sprintf("%s/oid4vp/api/request-object/%s/response-data", s.cfg.ExternalURL, management.ID),
		Nonce:                  management.RequestNonce,
		PresentationDefinition: management.RequestedPresentation,
		DcqlQuery:              management.DcqlQuery,
	})
}

// receiveWalletResponse accepts the direct_post response of a wallet: either
// a vp_token with its descriptor mapping, or an error when the holder
// rejected the request.
func (s *Server) receiveWalletResponse(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "id is not a valid uuid")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, "request body is not a valid form")
		return
	}

	response, err := walletResponseFromForm(r)
	if err != nil {
		writeVerificationError(w, r, http.StatusBadRequest, domain.ErrInvalidPresentationSubmission, err.Error())
		return
	}

	management, err := s.verification.ProcessWalletResponse(r.Context(), id, response)
	if err != nil {
		s.writeProcessingError(w, r, id, err)
		return
	}
	if management.State == domain.StateFailed && management.WalletResponse != nil && management.WalletResponse.ErrorCode != nil {
		writeVerificationError(w, r, http.StatusBadRequest, *management.WalletResponse.ErrorCode, management.WalletResponse.ErrorDescription)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func walletResponseFromForm(r *http.Request) (ports.WalletResponse, error) {
	response := ports.WalletResponse{
		Error:            r.PostFormValue("error"),
		ErrorDescription: r.PostFormValue("error_description"),
	}
	if response.Error != "" {
		return response, nil
	}

	vpToken := r.PostFormValue("vp_token")
	if vpToken == "" {
		return response, errors.New("wallet response carries neither vp_token nor error")
	}

	// the DCQL flow posts a JSON object keyed by credential query id
	var byQuery map[string]json.RawMessage
	if err := json.Unmarshal([]byte(vpToken), &byQuery); err == nil {
		tokens, err := tokensByQueryID(byQuery)
		if err != nil {
			return response, err
		}
		response.VPTokens = tokens
	} else {
		response.VPToken = vpToken
	}

	if submission := r.PostFormValue("presentation_submission"); submission != "" {
		response.PresentationSubmission = &domain.PresentationSubmission{}
		if err := json.Unmarshal([]byte(submission), response.PresentationSubmission); err != nil {
			return response, errors.New("presentation_submission is not valid JSON")
		}
	}
	return response, nil
}

func tokensByQueryID(byQuery map[string]json.RawMessage) (map[string][]string, error) {
	tokens := make(map[string][]string, len(byQuery))
	for queryID, raw := range byQuery {
		var single string
		if err := json.Unmarshal(raw, &single); err == nil {
			tokens[queryID] = []string{single}
			continue
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("vp_token entry %q is neither a token nor a token list", queryID)
		}
		tokens[queryID] = list
	}
	return tokens, nil
}

func (s *Server) writeProcessingError(w http.ResponseWriter, r *http.Request, id uuid.UUID, err error) {
	if errors.Is(err, repositories.ErrManagementNotFound) {
		writeError(w, r, http.StatusNotFound, "verification request not found")
		return
	}
	var vErr *domain.VerificationError
	if errors.As(err, &vErr) {
		writeVerificationError(w, r, http.StatusBadRequest, vErr.Code, vErr.Description)
		return
	}
	log.Error(r.Context(), "processing wallet response", "err", err, "id", id)
	writeError(w, r, http.StatusInternalServerError, "could not process the wallet response")
}

func writeVerificationError(w http.ResponseWriter, r *http.Request, status int, code domain.VerificationErrorCode, description string) {
	writeJSON(w, r, status, errorResponse{Error: string(code), ErrorDescription: description})
}
