// Package server exposes the read-only status API over the artifact
// store: recent builds, health, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/bokulich-lab/q2pkg/pkg/logging"
	"github.com/bokulich-lab/q2pkg/pkg/metrics"
	"github.com/bokulich-lab/q2pkg/pkg/models"
	"github.com/bokulich-lab/q2pkg/pkg/ratelimit"
	"github.com/bokulich-lab/q2pkg/pkg/store"
)

// Server serves the status API
type Server struct {
	store    store.Store
	exporter *metrics.Exporter
	logger   *logging.Logger
	limiter  *ratelimit.Limiter
	httpSrv  *http.Server
}

// New creates a status server listening on addr
func New(addr string, s store.Store, exporter *metrics.Exporter, logger *logging.Logger) *Server {
	srv := &Server{
		store:    s,
		exporter: exporter,
		logger:   logger.WithComponent("server"),
		limiter:  ratelimit.NewLimiter(10, 20),
	}

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(srv.limiter.Middleware(ratelimit.IPKeyFunc))
	api.HandleFunc("/health", srv.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/artifacts", srv.handleListArtifacts).Methods(http.MethodGet)
	api.HandleFunc("/artifacts/{id}", srv.handleGetArtifact).Methods(http.MethodGet)

	router.Handle("/metrics", exporter).Methods(http.MethodGet)

	srv.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv
}

// Run serves until the context is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", map[string]interface{}{"addr": s.httpSrv.Addr})
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Sweep idle rate limiter entries periodically
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.limiter.Cleanup(30 * time.Minute)
			}
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("status server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	var artifacts []*models.Artifact
	if status := r.URL.Query().Get("status"); status != "" {
		artifacts = s.store.GetArtifactsByStatus(models.ArtifactStatus(status))
	} else {
		artifacts = s.store.GetAllArtifacts()
	}
	if artifacts == nil {
		artifacts = []*models.Artifact{}
	}
	writeJSON(w, http.StatusOK, artifacts)
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	artifact, err := s.store.GetArtifact(id)
	if err == store.ErrArtifactNotFound {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "artifact not found"})
		return
	}
	if err != nil {
		s.logger.Error("failed to load artifact", map[string]interface{}{"id": id, "error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
