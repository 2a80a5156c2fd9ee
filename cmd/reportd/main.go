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

	"github.com/odyssey-erp/finreports/internal/app"
	"github.com/odyssey-erp/finreports/internal/normalize"
	"github.com/odyssey-erp/finreports/internal/observability"
	"github.com/odyssey-erp/finreports/internal/platform/cache"
	"github.com/odyssey-erp/finreports/internal/platform/db"
	"github.com/odyssey-erp/finreports/internal/reports"
	reporthttp "github.com/odyssey-erp/finreports/internal/reports/http"
	"github.com/odyssey-erp/finreports/jobs"
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
	metrics := observability.NewMetrics()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	reportMetrics, err := reports.NewMetrics(metrics.Registerer())
	if err != nil {
		logger.Error("register report metrics", slog.Any("error", err))
		os.Exit(1)
	}
	reportCache := reports.NewCache(redisClient, cfg.CacheTTL)
	opts := []reports.Option{
		reports.WithCache(reportCache),
		reports.WithMetrics(reportMetrics),
		reports.WithLogger(logger),
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		// Snapshots are diagnostics only; serve reports without them.
		logger.Warn("connect postgres, snapshots disabled", slog.Any("error", err))
	} else {
		defer pool.Close()
		store := reports.NewPGSnapshotStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Warn("ensure snapshot schema", slog.Any("error", err))
		} else {
			opts = append(opts, reports.WithSnapshots(store))
		}
	}

	source := reports.NewHTTPSource(cfg.UpstreamURL, cfg.UpstreamToken, cfg.UpstreamTimeout)
	normalizer := normalize.New(normalize.WithFormatter(cfg.Formatter()))
	service := reports.NewService(source, normalizer, opts...)

	go func() {
		if err := reportCache.ListenForInvalidation(ctx, reports.BumpChannel); err != nil && ctx.Err() == nil {
			logger.Warn("cache invalidation listener", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() { _ = inspector.Close() }()

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		ReportHandler: reporthttp.NewHandler(logger, service, cfg.Formatter()),
		JobHandler:    jobs.NewHandler(inspector, logger),
		Metrics:       metrics,
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
