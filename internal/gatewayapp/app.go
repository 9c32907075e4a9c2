package gatewayapp

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

	"github.com/Digitlify-Inc/cmp-platform/internal/cpclient"
	"github.com/Digitlify-Inc/cmp-platform/internal/gateway"
	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
	"github.com/Digitlify-Inc/cmp-platform/internal/identity"
	"github.com/Digitlify-Inc/cmp-platform/internal/platform"
	"github.com/Digitlify-Inc/cmp-platform/internal/telemetry"
	"github.com/Digitlify-Inc/cmp-platform/pkg/engineclient"
)

// Run reads Config, connects to infrastructure, and serves the Gateway's
// HTTP surface until ctx is cancelled.
func Run(ctx context.Context, cfg *Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("starting gateway", "listen", cfg.ListenAddr())

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer rdb.Close()

	httpTimeout, err := time.ParseDuration(cfg.HTTPClientTimeout)
	if err != nil {
		httpTimeout = 10 * time.Second
	}
	cp := cpclient.New(cfg.ControlPlaneURL, httpTimeout)

	var oidcAuth *identity.OIDCAuthenticator
	if cfg.OIDCIssuerURL != "" {
		oidcAuth, err = identity.NewOIDCAuthenticator(ctx, cfg.OIDCIssuerURL, cfg.OIDCAudience)
		if err != nil {
			return fmt.Errorf("initializing OIDC authenticator: %w", err)
		}
	}
	authenticator := gateway.NewAuthenticator(cp, oidcAuth)

	engineTimeout, err := time.ParseDuration(cfg.EngineTimeout)
	if err != nil {
		engineTimeout = 60 * time.Second
	}
	engine := engineclient.NewHTTPEngine(cfg.EngineURL, engineTimeout)

	widget := gateway.NewWidgetSessions(rdb)
	handler := gateway.NewHandler(logger, authenticator, cp, engine, widget, cfg.WidgetAllowedOrigins)

	metricsReg := telemetry.NewMetricsRegistry()

	router := chi.NewRouter()
	router.Use(httpserver.RequestID)
	router.Use(httpserver.Logger(logger))
	router.Use(httpserver.Metrics)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization", "X-API-Key", "Content-Type"},
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			httpserver.RespondError(w, http.StatusServiceUnavailable, httpserver.RequestIDFromContext(r.Context()), "unavailable", "redis unreachable")
			return
		}
		httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	router.Handle(cfg.MetricsPath, promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))

	router.Post("/v1/runs", handler.HandleRun)
	router.Post("/v1/widget/session:init", handler.HandleWidgetSessionInit)

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      router,
		ReadTimeout:  httpTimeout,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down gateway")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
