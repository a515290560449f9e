package ui

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
)

// OpsServer is the operational sidecar serving health and readiness probes
// on a separate port from the API.
type OpsServer struct {
	router *chi.Mux
	db     *sqlx.DB
}

// NewOpsServer creates the ops server
func NewOpsServer(db *sqlx.DB) *OpsServer {
	s := &OpsServer{
		router: chi.NewRouter(),
		db:     db,
	}

	s.router.Use(middleware.Recoverer)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)

	return s
}

// Start starts the ops server
func (s *OpsServer) Start(addr string) error {
	log.Printf("Starting ops server on http://%s", addr)
	return http.ListenAndServe(addr, s.router)
}

// handleHealth reports process liveness
func (s *OpsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleReady reports readiness, gated on a database round trip
func (s *OpsServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		log.Printf("[Ops] readiness check failed: %v", err)
		http.Error(w, "database unreachable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
