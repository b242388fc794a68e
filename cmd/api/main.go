// cmd/api serves the client-facing control plane: wallet auth,
// recipients, intent parsing, and transaction history.
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
	"github.com/voicepay/scheduler/internal/health"
	"github.com/voicepay/scheduler/internal/infrastructure/postgres"
	"github.com/voicepay/scheduler/internal/infrastructure/redisindex"
	"github.com/voicepay/scheduler/internal/intent"
	ctxlog "github.com/voicepay/scheduler/internal/log"
	"github.com/voicepay/scheduler/internal/metrics"
	"github.com/voicepay/scheduler/internal/shard"
	httptransport "github.com/voicepay/scheduler/internal/transport/http"
	"github.com/voicepay/scheduler/internal/transport/http/handler"
	"github.com/voicepay/scheduler/internal/usecase"
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

	shardStore := postgres.NewShardStore(pool, logger)
	registry := shard.NewRegistry(shardStore)

	indexStore, err := redisindex.New(cfg.RedisURL)
	if err != nil {
		stop()
		log.Fatalf("redis: %v", err)
	}
	defer func() { _ = indexStore.Close() }()

	authUC := usecase.NewAuthUsecase(registry, []byte(cfg.JWTSecret))
	recipientUC := usecase.NewRecipientUsecase(registry)
	scheduleUC := usecase.NewScheduleUsecase(registry, indexStore)
	intentUC := usecase.NewIntentUsecase(intent.NewResolver(intent.StubParser{}), registry, scheduleUC)
	transactionUC := usecase.NewTransactionUsecase(registry)

	authHandler := handler.NewAuthHandler(authUC, logger)
	recipientHandler := handler.NewRecipientHandler(recipientUC, logger)
	transactionHandler := handler.NewTransactionHandler(intentUC, transactionUC, cfg.RecurringContract, logger)

	metrics.Register()
	checker := health.NewChecker(pool, indexStore, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(authHandler, recipientHandler, transactionHandler, []byte(cfg.JWTSecret), logger),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("api server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("api server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
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
