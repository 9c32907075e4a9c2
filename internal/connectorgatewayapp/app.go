package connectorgatewayapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Digitlify-Inc/cmp-platform/internal/connectorgateway"
	"github.com/Digitlify-Inc/cmp-platform/internal/cpclient"
	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
	"github.com/Digitlify-Inc/cmp-platform/internal/platform"
	"github.com/Digitlify-Inc/cmp-platform/internal/telemetry"
	"github.com/Digitlify-Inc/cmp-platform/pkg/secretstore"
)

// Run reads Config, connects to infrastructure, and serves the Connector
// Gateway's HTTP surface until ctx is cancelled.
func Run(ctx context.Context, cfg *Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("starting connector gateway", "listen", cfg.ListenAddr())

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer rdb.Close()

	secrets, err := secretstore.New(cfg.VaultAddr, cfg.VaultToken, cfg.VaultMount)
	if err != nil {
		return fmt.Errorf("initializing secret store: %w", err)
	}

	httpTimeout, err := time.ParseDuration(cfg.HTTPClientTimeout)
	if err != nil {
		httpTimeout = 10 * time.Second
	}
	cp := cpclient.New(cfg.ControlPlaneURL, httpTimeout)

	connectorTimeout, err := time.ParseDuration(cfg.ConnectorTimeout)
	if err != nil {
		connectorTimeout = 30 * time.Second
	}

	limiter := connectorgateway.NewRateLimiter(rdb, cfg.RateLimitPerMinute)
	handler := connectorgateway.NewHandler(logger, cp, secrets, limiter, connectorTimeout)

	metricsReg := telemetry.NewMetricsRegistry(telemetry.ConnectorDispatchDuration)

	router := chi.NewRouter()
	router.Use(httpserver.RequestID)
	router.Use(httpserver.Logger(logger))
	router.Use(httpserver.Metrics)

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

	router.Post("/connectors/execute", handler.HandleExecute)
	router.Get("/connectors/bindings/{id}/validate", handler.HandleValidateBinding)

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      router,
		ReadTimeout:  httpTimeout,
		WriteTimeout: connectorTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("connector gateway listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down connector gateway")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
