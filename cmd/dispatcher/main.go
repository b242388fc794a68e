// cmd/dispatcher runs the Dispatcher (C3) and Reconciler loops against
// the Schedule Index, firing due schedules through the Executor Bridge.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/voicepay/scheduler/config"
	"github.com/voicepay/scheduler/internal/email"
	"github.com/voicepay/scheduler/internal/executor"
	"github.com/voicepay/scheduler/internal/health"
	"github.com/voicepay/scheduler/internal/infrastructure/postgres"
	"github.com/voicepay/scheduler/internal/infrastructure/redisindex"
	ctxlog "github.com/voicepay/scheduler/internal/log"
	"github.com/voicepay/scheduler/internal/metrics"
	"github.com/voicepay/scheduler/internal/scheduler"
	"github.com/voicepay/scheduler/internal/shard"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	logger.Info("db connected")

	indexStore, err := redisindex.New(cfg.RedisURL)
	if err != nil {
		stop()
		log.Fatalf("redis: %v", err)
	}
	defer func() { _ = indexStore.Close() }()

	metrics.Register()
	checker := health.NewChecker(pool, indexStore, logger, prometheus.DefaultRegisterer)

	shardStore := postgres.NewShardStore(pool, logger)
	registry := shard.NewRegistry(shardStore)

	executorClient := executor.NewClient(cfg.ExecutorURL, cfg.HMACSharedSecret)

	dispatcher := scheduler.NewDispatcher(
		indexStore,
		executorClient,
		registry,
		logger,
		time.Duration(cfg.DispatchIntervalSeconds)*time.Second,
		time.Duration(cfg.DispatchTimeoutSeconds)*time.Second,
		time.Duration(cfg.RetryBackoffSeconds)*time.Second,
	)
	if cfg.OpsAlertEmail != "" {
		sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
		dispatcher.WithOpsAlerts(sender, cfg.OpsAlertEmail)
	}
	go dispatcher.Start(ctx)

	reconciler, err := scheduler.NewReconciler(registry, indexStore, logger, cfg.ReconcileCronExpr)
	if err != nil {
		stop()
		log.Fatalf("reconciler: %v", err)
	}
	go reconciler.Start(ctx)

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("dispatcher shut down")
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
