package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/wallet-payments/internal/auth"
	"github.com/frahmantamala/wallet-payments/internal/deposit"
	"github.com/frahmantamala/wallet-payments/internal/metrics"
	"github.com/frahmantamala/wallet-payments/internal/transport/rest"
	"github.com/frahmantamala/wallet-payments/internal/wallet"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server that fronts deposits and wallet actions`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	config, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	app, err := newApp(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	router := chi.NewRouter()
	setupRoutes(router, app)

	addr := fmt.Sprintf(":%d", config.Server.Port)
	app.Logger.Info("Starting HTTP server", "address", addr, "pending_store", config.PendingStore.Driver)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: config.Server.ReadHeaderTimeout,
		ReadTimeout:       config.Server.ReadTimeout,
		WriteTimeout:      config.Server.WriteTimeout,
		IdleTimeout:       config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		app.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			app.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("Server failed to start", "error", err)
			app.Close()
			os.Exit(1)
		}
	}

	app.Logger.Info("Server stopped")
}

func setupRoutes(router *chi.Mux, app *App) {
	cfg := app.Config
	lg := app.Logger

	routes := rest.Routes{
		Health:  rest.NewHealthHandler(app.Checks),
		Auth:    auth.NewMiddleware(auth.NewTokenVerifier(cfg.Security.JWTSecret), cfg.Security.RequireAuth, lg),
		Deposit: deposit.NewHandler(app.Deposits, lg),
		Wallet:  wallet.NewHandler(app.Dispatcher, lg),
	}
	if cfg.Observability.Metrics.Enabled {
		routes.Metrics = metrics.Handler()
		routes.MetricsPath = cfg.Observability.Metrics.Path
	}
	if !cfg.Security.RequireAuth {
		lg.Warn("authentication is optional, anonymous callers share one pending order slot per gateway")
	}

	rest.RegisterAllRoutes(router, routes, lg)
}

