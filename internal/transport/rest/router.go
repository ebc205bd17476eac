package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/wallet-payments/internal/auth"
	"github.com/frahmantamala/wallet-payments/internal/deposit"
	"github.com/frahmantamala/wallet-payments/internal/transport/middleware"
	"github.com/frahmantamala/wallet-payments/internal/transport/swagger"
	"github.com/frahmantamala/wallet-payments/internal/wallet"
)

type Routes struct {
	Health  *HealthHandler
	Auth    *auth.Middleware
	Deposit *deposit.Handler
	Wallet  *wallet.Handler
	// Metrics is mounted at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
	SpecPath    string
}

func RegisterAllRoutes(router *chi.Mux, routes Routes, logger *slog.Logger) {
	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	if routes.Metrics != nil {
		path := routes.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, routes.Metrics)
	}

	// Serve OpenAPI spec at root (outside API prefix)
	specPath := routes.SpecPath
	if specPath == "" {
		specPath = "./api/openapi.yml"
	}
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, specPath)
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		if routes.Health != nil {
			r.Get("/health", routes.Health.healthCheckHandler)
			r.Get("/ping", routes.Health.pingHandler)
		}

		r.Group(func(pr chi.Router) {
			if routes.Auth != nil {
				pr.Use(routes.Auth.Handler)
			}

			if routes.Deposit != nil {
				pr.Route("/deposits", routes.Deposit.Routes)
			}
			if routes.Wallet != nil {
				pr.Post("/wallet/actions", routes.Wallet.DispatchAction)
			}
		})
	})
}
