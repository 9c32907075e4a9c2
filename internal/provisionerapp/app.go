package provisionerapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Digitlify-Inc/cmp-platform/internal/cpclient"
	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
	"github.com/Digitlify-Inc/cmp-platform/internal/platform"
	"github.com/Digitlify-Inc/cmp-platform/internal/provisioner"
	"github.com/Digitlify-Inc/cmp-platform/internal/telemetry"
)

// Run reads Config, connects to infrastructure, and serves the Provisioner's
// HTTP surface until ctx is cancelled.
func Run(ctx context.Context, cfg *Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("starting provisioner", "listen", cfg.ListenAddr())

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

	idempotency := provisioner.NewIdempotencyStore(rdb)
	handler := provisioner.NewHandler(logger, cp, idempotency, cfg.WebhookSecret)

	metricsReg := telemetry.NewMetricsRegistry(telemetry.ProvisioningOutcomesTotal)

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

	router.Post("/webhooks/saleor/order-paid", handler.HandleOrderPaid)

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      router,
		ReadTimeout:  httpTimeout,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("provisioner listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down provisioner")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
