package api

import (
	"encoding/json"
	"net/http"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/log"
)

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error(r.Context(), "writing response", "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, description string) {
	writeJSON(w, r, status, errorResponse{Error: http.StatusText(status), ErrorDescription: description})
}
