// Package rest wires the HTTP surface: routing, middleware, and handlers.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"jdbuilder/infrastructure/config"
	"jdbuilder/interfaces/http/rest/handlers"
	"jdbuilder/interfaces/http/rest/middleware"
	"jdbuilder/pkg/observability"
)

// RouterDeps carries everything the router needs.
type RouterDeps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *observability.Collector
	JD       *handlers.JDHandler
	Analyses *handlers.AnalysisHandler
}

// NewRouter builds the chi router with the full middleware stack and all
// API routes mounted under /api/v1.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(deps.Logger))
	if deps.Config.EnableMetrics {
		r.Use(middleware.Metrics(deps.Metrics))
	}

	if deps.Config.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	if deps.Config.EnableMetrics {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry(), promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Authenticate(middleware.AuthConfig{
			JWTSecret: deps.Config.JWTSecret,
			JWTIssuer: deps.Config.JWTIssuer,
		}))

		api.Route("/jd", func(jd chi.Router) {
			jd.Post("/generate", deps.JD.Generate)
			jd.Post("/refine", deps.JD.Refine)
		})

		api.Route("/analyses", func(an chi.Router) {
			an.Post("/", deps.Analyses.Save)
			an.Get("/", deps.Analyses.List)
			an.Get("/{analysisID}", deps.Analyses.Get)
			an.Delete("/{analysisID}", deps.Analyses.Delete)
			an.Get("/{analysisID}/export", deps.Analyses.Export)
		})
	})

	return r
}
