package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"onboard/internal/kyc/handler"
	"onboard/internal/kyc/providers"
	httpmetrics "onboard/internal/platform/metrics"
	"onboard/pkg/platform/httputil"
	authmw "onboard/pkg/platform/middleware/auth"
	"onboard/pkg/platform/middleware/metadata"
	"onboard/pkg/platform/middleware/requesttime"
)

func newRouter(log *slog.Logger, m *httpmetrics.Metrics, validator authmw.JWTValidator, kyc *handler.Handler, health http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(m.Middleware)

	r.Get("/healthz", health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(validator, log))
		kyc.Register(r)
	})
	return r
}

// newHealthHandler reports each configured dependency. Any failure answers 503.
func newHealthHandler(in *infra, provider providers.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true
		record := func(name string, err error) {
			if err != nil {
				checks[name] = err.Error()
				healthy = false
				return
			}
			checks[name] = "ok"
		}
		if in.db != nil {
			record("postgres", in.db.PingContext(ctx))
		}
		if in.redis != nil {
			record("redis", in.redis.Health(ctx))
		}
		if in.kafka != nil {
			record("kafka", in.kafka.Health(ctx))
		}
		// The provider is reported but never fails readiness; the breaker covers it.
		if err := provider.Health(ctx); err != nil {
			checks["provider"] = err.Error()
		} else {
			checks["provider"] = "ok"
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, map[string]any{"healthy": healthy, "checks": checks})
	}
}
