package controlplaneapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
	"github.com/Digitlify-Inc/cmp-platform/internal/identity"
	"github.com/Digitlify-Inc/cmp-platform/internal/platform"
	"github.com/Digitlify-Inc/cmp-platform/internal/telemetry"
	"github.com/Digitlify-Inc/cmp-platform/pkg/controlplane"
	"github.com/Digitlify-Inc/cmp-platform/pkg/secretstore"
)

// Run reads Config, connects to infrastructure, and serves the Control
// Plane's HTTP surface until ctx is cancelled.
func Run(ctx context.Context, cfg *Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("starting control plane", "listen", cfg.ListenAddr())

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	secrets, err := secretstore.New(cfg.VaultAddr, cfg.VaultToken, cfg.VaultMount)
	if err != nil {
		return fmt.Errorf("constructing secret store client: %w", err)
	}

	var oidcAuth *identity.OIDCAuthenticator
	if cfg.OIDCIssuerURL != "" {
		oidcAuth, err = identity.NewOIDCAuthenticator(ctx, cfg.OIDCIssuerURL, cfg.OIDCAudience)
		if err != nil {
			return fmt.Errorf("initializing OIDC authenticator: %w", err)
		}
		logger.Info("OIDC authentication enabled", "issuer", cfg.OIDCIssuerURL)
	} else {
		return fmt.Errorf("OIDC_ISSUER_URL is required: authenticated Control Plane routes have no fallback")
	}

	store := controlplane.NewStore(db)
	svc := controlplane.NewService(store, logger, secrets, cfg.DefaultRunBudget, cfg.TrialCredits, cfg.VaultMount)
	handler := controlplane.NewHandler(logger, svc)

	metricsReg := telemetry.NewMetricsRegistry(
		telemetry.ReservationsCreatedTotal,
		telemetry.SettlementsTotal,
		telemetry.ProvisioningOutcomesTotal,
	)

	router := chi.NewRouter()
	router.Use(httpserver.RequestID)
	router.Use(httpserver.Logger(logger))
	router.Use(httpserver.Metrics)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			httpserver.RespondError(w, http.StatusServiceUnavailable, httpserver.RequestIDFromContext(r.Context()), "unavailable", "database unreachable")
			return
		}
		httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	router.Handle(cfg.MetricsPath, promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))

	handler.MountOpen(router)
	router.Group(func(r chi.Router) {
		r.Use(identity.RequireOIDC(oidcAuth, func(req *http.Request) string {
			return httpserver.RequestIDFromContext(req.Context())
		}))
		handler.MountAuthenticated(r)
	})

	timeout, err := time.ParseDuration(cfg.HTTPClientTimeout)
	if err != nil {
		timeout = 10 * time.Second
	}

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      router,
		ReadTimeout:  timeout,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("control plane listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down control plane")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
