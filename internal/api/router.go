// Package api exposes the survey dashboard over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ruslano69/surveydash/internal/infra"
	"github.com/ruslano69/surveydash/pkg/core/dataset"
)

// NewRouter wires all dependencies and returns the chi router.
func NewRouter(cfg *infra.Config, inf *infra.Infra, tbl *dataset.Table) http.Handler {
	r := chi.NewRouter()

	timeout := cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r.Use(zerologMiddleware)
	r.Use(metricsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	datasetRows.WithLabelValues(tbl.Name()).Set(float64(tbl.Len()))

	s := &sessionHandler{
		gate:   inf.Gate,
		audit:  inf.Audit,
		secure: cfg.Server.SecureCookie,
		ttl:    cfg.Security.SessionTTL,
	}
	h := &surveyHandler{
		table:    tbl,
		audit:    inf.Audit,
		kpis:     cfg.KPIs,
		pageSize: cfg.Server.PageSize,
	}

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(inf, tbl))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.Login)
		r.Post("/logout", s.Logout)
		r.Get("/session", s.Status)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/dataset", h.Dataset)
			r.Get("/questions/{index}/options", h.Options)
			r.Post("/query", h.Query)
			r.Get("/responses", h.Responses)
			r.Get("/responses/{index}", h.Response)
			r.Post("/summary", h.Summary)
			r.Get("/kpis", h.KPIs)
			r.Post("/kpis", h.KPIs)
			r.Post("/export", h.Export)
			r.Get("/export", h.Export)
		})
	})

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports the loaded dataset and pings the session backend.
func handleReadyz(inf *infra.Infra, tbl *dataset.Table) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"dataset":  tbl.Fingerprint(),
			"sessions": "ok",
		}
		status := http.StatusOK

		if err := inf.Ping(r.Context()); err != nil {
			checks["sessions"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, checks)
	}
}
