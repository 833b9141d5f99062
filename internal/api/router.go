// Package api exposes the reconciliation engine's HTTP surface: ingestion
// triggers, reconciliation runs, exception routing and remediation,
// reporting, and break-risk prediction. It is a thin layer over the
// engine, store, router, remediator, and predictor packages — exercised by
// integration tests, not a production API gateway.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/meridianops/trade-recon/internal/domain"
	"github.com/meridianops/trade-recon/internal/engine"
	"github.com/meridianops/trade-recon/internal/errs"
	"github.com/meridianops/trade-recon/internal/ingest"
	"github.com/meridianops/trade-recon/internal/metrics"
	"github.com/meridianops/trade-recon/internal/predict"
	"github.com/meridianops/trade-recon/internal/remediate"
	"github.com/meridianops/trade-recon/internal/route"
	"github.com/meridianops/trade-recon/internal/store"
)

// Dependencies are the components the HTTP surface delegates to. Predictor,
// Metrics, and Connectors are optional: a nil Predictor yields
// ModelUnavailable from the prediction endpoint, a nil Metrics omits the
// /metrics route, and a source absent from Connectors is left out of the
// ingestion counts.
type Dependencies struct {
	Store        store.Store
	Orchestrator *engine.Orchestrator
	Router       *route.Router
	Remediator   *remediate.Remediator
	Predictor    *predict.Predictor
	Metrics      *metrics.Metrics
	Connectors   map[domain.Source]ingest.Connector
	Environment  string
	Log          *logrus.Logger
}

// New builds a chi.Mux implementing every route in the reconciliation
// engine's documented HTTP surface, mounted under prefix (e.g. "/api/v1").
func New(deps Dependencies, prefix string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	h := &handlers{deps: deps}

	r.Get("/health", h.health)
	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route(prefix, func(r chi.Router) {
		r.Post("/ingestion/run", h.runIngestion)
		r.Post("/reconciliation/run", h.runReconciliation)
		r.Post("/exceptions/{id}/route", h.routeException)
		r.Post("/exceptions/{id}/auto-remediate", h.autoRemediate)
		r.Get("/exceptions/overdue", h.overdueExceptions)
		r.Get("/breaks/open", h.openBreaks)
		r.Get("/reports/summary", h.reportSummary)
		r.Get("/reports/aging", h.reportAging)
		r.Get("/reports/runs", h.reportRuns)
		r.Get("/reports/root-cause", h.reportRootCause)
		r.Post("/prediction/score", h.predictionScore)
		r.Get("/trades/count", h.tradesCount)
	})

	return r
}

func requestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			next.ServeHTTP(wrapped, req)
			log.WithFields(logrus.Fields{
				"method":      req.Method,
				"path":        req.URL.Path,
				"status":      wrapped.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(req.Context()),
			}).Info("http request")
		})
	}
}

type handlers struct {
	deps Dependencies
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, errs.ErrModelUnavailable):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrStorage), errors.Is(err, errs.ErrInvariantViolated):
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	env := h.deps.Environment
	if env == "" {
		env = "development"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"timestamp":   time.Now().UTC(),
		"environment": env,
	})
}
