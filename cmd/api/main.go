package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/docverify/internal/adapters/http"
	"github.com/kirillkom/docverify/internal/bootstrap"
	"github.com/kirillkom/docverify/internal/config"
	"github.com/kirillkom/docverify/internal/observability/logging"
	"github.com/kirillkom/docverify/internal/observability/metrics"
)

const serviceName = "api"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger:   logger,
		Breakers: httpMetrics,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(app.ExtractUC, app.SubmitUC, app.HistoryUC, app.Exporter, httpadapter.RouterOptions{
		Service:                 serviceName,
		Logger:                  logger,
		Metrics:                 httpMetrics,
		MaxUploadBytes:          cfg.MaxUploadBytes,
		RateLimitRPS:            cfg.APIRateLimitRPS,
		RateLimitBurst:          cfg.APIRateLimitBurst,
		BackpressureMaxInFlight: cfg.APIBackpressureMax,
		BackpressureWait:        cfg.APIBackpressureWait,
	})
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
