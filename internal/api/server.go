package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/config"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/ports"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/db"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/log"
)

// Server exposes the verifier over HTTP: the management API used by the
// business verifier and the OpenID4VP endpoints used by wallets.
type Server struct {
	cfg          *config.Configuration
	storage      *db.Storage
	management   ports.ManagementService
	verification ports.VerificationService
}

// NewServer creates a Server
func NewServer(cfg *config.Configuration, storage *db.Storage, management ports.ManagementService, verification ports.VerificationService) *Server {
	return &Server{
		cfg:          cfg,
		storage:      storage,
		management:   management,
		verification: verification,
	}
}

// Routes builds the router with the middleware stack
func (s *Server) Routes(ctx context.Context) http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.AllowAll().Handler)
	mux.Use(log.ChiMiddleware(ctx))

	mux.Get("/status", s.status)

	mux.Route("/management/api/verifications", func(r chi.Router) {
		r.Post("/", s.createVerification)
		r.Get("/{id}", s.getVerification)
	})

	mux.Route("/oid4vp/api/request-object/{id}", func(r chi.Router) {
		r.Get("/", s.getRequestObject)
		r.Post("/response-data", s.receiveWalletResponse)
	})

	return mux
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.Pgx.Ping(r.Context()); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "UP"})
}
