// cmd/executor runs the privileged Executor Bridge (C4): the only
// component that ever broadcasts an on-chain pullPayment transaction.
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
	"github.com/voicepay/scheduler/internal/executor"
	"github.com/voicepay/scheduler/internal/health"
	"github.com/voicepay/scheduler/internal/infrastructure/postgres"
	ctxlog "github.com/voicepay/scheduler/internal/log"
	"github.com/voicepay/scheduler/internal/metrics"
	"github.com/voicepay/scheduler/internal/shard"
	httptransport "github.com/voicepay/scheduler/internal/transport/http"
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

	chain, err := executor.NewOnChain(ctx, cfg.RPCURL, cfg.ExecutorPrivateKey, cfg.RecurringContract, cfg.USDCAddress)
	if err != nil {
		stop()
		log.Fatalf("on-chain client: %v", err)
	}
	defer chain.Close()

	bridge := executor.NewBridge(chain, registry, logger)

	metrics.Register()
	checker := health.NewChecker(pool, nil, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewExecutorRouter(
			bridge,
			cfg.HMACSharedSecret,
			time.Duration(cfg.HMACClockSkewSeconds)*time.Second,
			logger,
		),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("executor bridge started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("executor bridge: %v", err)
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
		logger.Error("executor bridge shutdown", "error", err)
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
