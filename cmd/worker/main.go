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

	"github.com/kirillkom/docverify/internal/bootstrap"
	"github.com/kirillkom/docverify/internal/config"
	"github.com/kirillkom/docverify/internal/core/domain"
	"github.com/kirillkom/docverify/internal/observability/logging"
	"github.com/kirillkom/docverify/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger:   logger,
		Observer: workerMetrics,
		Breakers: workerMetrics,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeVerificationRequested(ctx, func(handlerCtx context.Context, req domain.VerificationRequest) error {
		if !req.SubmittedAt.IsZero() {
			workerMetrics.ObserveQueueLag(time.Since(req.SubmittedAt))
		}
		workerMetrics.StartRequest()
		defer workerMetrics.FinishRequest()

		verifyCtx, cancel := context.WithTimeout(handlerCtx, cfg.VerifyTimeout)
		defer cancel()
		_, err := app.VerifyUC.Verify(verifyCtx, req)
		return err
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
