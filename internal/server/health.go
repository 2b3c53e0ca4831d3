package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/morezero/actor-dispatch/internal/config"
	"github.com/morezero/actor-dispatch/pkg/db"
)

const healthLogPrefix = "server:health"

type connChecker interface {
	IsConnected() bool
}

type pinger interface {
	Ping(ctx context.Context) error
}

type auditReader interface {
	ListInvocations(ctx context.Context, actorID string, limit int) ([]db.InvocationRecord, error)
	CountByOutcome(ctx context.Context, actorID string) ([]db.OutcomeCount, error)
}

// Server exposes health and audit endpoints for a running host.
type Server struct {
	cfg       *config.Config
	comms     connChecker
	db        pinger      // nil when the audit log is disabled
	audit     auditReader // nil when the audit log is disabled
	actors    func() int
	providers int
}

// HealthChecks reports each dependency.
type HealthChecks struct {
	Comms    bool  `json:"comms"`
	Database *bool `json:"database,omitempty"`
}

// HealthOutput is the /health response body.
type HealthOutput struct {
	Status    string       `json:"status"`
	Checks    HealthChecks `json:"checks"`
	Actors    int          `json:"actors"`
	Providers int          `json:"providers"`
	Timestamp string       `json:"timestamp"`
}

// AuditOutput is the /invocations response body.
type AuditOutput struct {
	Invocations []db.InvocationRecord `json:"invocations"`
	Outcomes    []db.OutcomeCount     `json:"outcomes"`
}

// Routes builds the health router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/invocations", s.handleInvocations)
	return r
}

// Health checks NATS and, when configured, the audit database.
func (s *Server) Health(ctx context.Context) *HealthOutput {
	out := &HealthOutput{
		Status:    "healthy",
		Providers: s.providers,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if s.actors != nil {
		out.Actors = s.actors()
	}
	out.Checks.Comms = s.comms != nil && s.comms.IsConnected()
	if !out.Checks.Comms {
		out.Status = "unhealthy"
	}
	if s.db != nil {
		ok := s.db.Ping(ctx) == nil
		out.Checks.Database = &ok
		if !ok {
			out.Status = "unhealthy"
		}
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
	defer cancel()
	h := s.Health(ctx)
	w.Header().Set("Content-Type", "application/json")
	if h.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(h)
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// handleInvocations lists recent audit rows; ?actor= filters, ?limit= bounds the list.
func (s *Server) handleInvocations(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.audit == nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "audit log disabled"})
		return
	}

	actorID := r.URL.Query().Get("actor")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
	defer cancel()

	rows, err := s.audit.ListInvocations(ctx, actorID, limit)
	if err == nil {
		var counts []db.OutcomeCount
		if counts, err = s.audit.CountByOutcome(ctx, actorID); err == nil {
			json.NewEncoder(w).Encode(AuditOutput{Invocations: rows, Outcomes: counts})
			return
		}
	}
	slog.Error(fmt.Sprintf("%s - audit query failed: %v", healthLogPrefix, err))
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "audit query failed"})
}
