// Package api exposes the job management HTTP API: submit, inspect,
// cancel, and list jobs, plus service stats and health.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/IsaiahDupree/BlankLogo-sub004/engine"
)

// API holds the HTTP handlers for the BlankLogo management API.
type API struct {
	eng    *engine.Engine
	logger *slog.Logger
}

// New creates the API over a built engine.
func New(eng *engine.Engine, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{eng: eng, logger: logger}
}

// Router builds the chi router with all routes mounted under /v1.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
	)

	r.Get("/v1/healthz", a.health)
	r.Get("/v1/stats", a.stats)

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/", a.submitJob)
		r.Get("/", a.listJobs)
		r.Get("/{jobID}", a.getJob)
		r.Get("/{jobID}/events", a.listEvents)
		r.Post("/{jobID}/cancel", a.cancelJob)
	})

	return r
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("encode response", slog.String("error", err.Error()))
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, errorResponse{Error: msg})
}
