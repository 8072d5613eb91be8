package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mahafpc/fpo-ledger/internal/app"
	"github.com/mahafpc/fpo-ledger/internal/observability"
	"github.com/mahafpc/fpo-ledger/internal/payments"
	"github.com/mahafpc/fpo-ledger/internal/platform/cache"
	"github.com/mahafpc/fpo-ledger/internal/platform/db"
	"github.com/mahafpc/fpo-ledger/internal/reports"
	reportshttp "github.com/mahafpc/fpo-ledger/internal/reports/http"
	"github.com/mahafpc/fpo-ledger/internal/shared"
	"github.com/mahafpc/fpo-ledger/internal/snapshot"
	"github.com/mahafpc/fpo-ledger/jobs"
	"github.com/mahafpc/fpo-ledger/migrations"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns, MaxConnLifetime: cfg.PGConnMaxLife})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := db.Migrate(ctx, dbpool, migrations.FS, logger); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	repo := snapshot.NewRepository(dbpool)
	reportService := reports.NewService(repo, metrics, reports.Config{Workers: cfg.ReportWorkers}, logger)
	paymentService := payments.NewService(
		repo,
		shared.NewLocker(redisClient, cfg.LockTTL),
		shared.NewIdempotencyStore(dbpool),
		shared.NewAuditLogger(dbpool),
		metrics,
		payments.Config{Policy: cfg.Policy()},
		logger,
	)

	jobClient := jobs.NewClient(cfg.Redis().AsynqOpt())
	defer jobClient.Close()
	inspector := asynq.NewInspector(cfg.Redis().AsynqOpt())
	defer inspector.Close()

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		ReportHandler: reportshttp.NewHandler(logger, reportService, paymentService, reportshttp.Options{ExportsPerMinute: cfg.ExportsPerMinute}),
		JobHandler:    jobs.NewHandler(inspector, jobClient, logger),
		Metrics:       metrics,
		DB:            dbpool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
