package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/docverify/internal/config"
	"github.com/kirillkom/docverify/internal/core/ports"
	"github.com/kirillkom/docverify/internal/core/usecase"
	"github.com/kirillkom/docverify/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/docverify/internal/infrastructure/extractor"
	"github.com/kirillkom/docverify/internal/infrastructure/queue/nats"
	"github.com/kirillkom/docverify/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/docverify/internal/infrastructure/resilience"
	"github.com/kirillkom/docverify/internal/infrastructure/storage/localfs"
)

type Options struct {
	Logger   *slog.Logger
	Observer ports.VerificationObserver
	Breakers resilience.StateObserver
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Repo      ports.VerificationRepository
	ExtractUC *usecase.ExtractUseCase
	SubmitUC  *usecase.SubmitUseCase
	VerifyUC  *usecase.VerifyUseCase
	HistoryUC *usecase.HistoryUseCase
	Exporter  ports.ResultExporter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine, err := NewEngine(cfg, logger)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewVerificationRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	policy := resilience.DefaultConfig()
	policy.RetryMaxAttempts = cfg.PublishRetryMaxAttempts
	policy.BreakerEnabled = cfg.PublishBreakerEnabled
	policy.BreakerOpenTimeout = cfg.PublishBreakerOpenTimeout
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(policy, logger, opts.Breakers),
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	loader := extractor.NewLoader(storage, cfg.MaxUploadBytes)

	return &App{
		Config: cfg,
		Logger: logger,
		Queue:  queue,
		Repo:   repo,

		ExtractUC: usecase.NewExtractUseCase(storage, loader, engine.Extractor),
		SubmitUC:  usecase.NewSubmitUseCase(storage, queue, repo, usecase.SubmitOptions{
			StaleAfter: cfg.CycleStaleAfter,
			Logger:     logger,
		}),
		VerifyUC: usecase.NewVerifyUseCase(repo, loader, engine.Extractor, engine.Reconciler, engine.Scorer, usecase.VerifyOptions{
			Concurrency: cfg.ExtractionConcurrency,
			Observer:    opts.Observer,
			Logger:      logger,
		}),
		HistoryUC: usecase.NewHistoryUseCase(repo),
		Exporter:  xlsx.NewExporter(logger),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
