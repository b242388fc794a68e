package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config holds every enumerated environment variable from the spec,
// plus the ambient ones the control plane always needs (env, ports,
// log level, storage DSNs).
type Config struct {
	Env         string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port        string `env:"PORT" envDefault:"8080" validate:"required"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"required,oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0" validate:"required"`

	// Dispatcher (C3)
	DispatchIntervalSeconds int    `env:"DISPATCH_INTERVAL_SECONDS" envDefault:"60" validate:"min=1,max=3600"`
	DispatchTimeoutSeconds  int    `env:"DISPATCH_TIMEOUT_SECONDS" envDefault:"30" validate:"min=1,max=300"`
	RetryBackoffSeconds     int    `env:"RETRY_BACKOFF_SECONDS" envDefault:"600" validate:"min=1"`
	ReconcileCronExpr       string `env:"RECONCILE_CRON_EXPR" envDefault:"0 */15 * * * *"`

	ShardOpTimeoutSeconds  int `env:"SHARD_OP_TIMEOUT_SECONDS" envDefault:"5" validate:"min=1,max=60"`
	IndexOpTimeoutSeconds  int `env:"INDEX_OP_TIMEOUT_SECONDS" envDefault:"5" validate:"min=1,max=60"`
	ParserCallTimeoutSec   int `env:"PARSER_TIMEOUT_SECONDS" envDefault:"15" validate:"min=1,max=120"`
	HMACClockSkewSeconds   int `env:"HMAC_CLOCK_SKEW_SECONDS" envDefault:"300" validate:"min=1"`

	// Service Auth (C5)
	HMACSharedSecret string `env:"HMAC_SHARED_SECRET,required" validate:"required,min=16"`

	// Bearer tokens issued after wallet-signature verify.
	JWTSecret string `env:"JWT_SECRET,required" validate:"required,min=16"`

	// Executor Bridge (C4)
	ExecutorPrivateKey string `env:"EXECUTOR_PRIVATE_KEY,required" validate:"required"`
	RPCURL             string `env:"RPC_URL,required" validate:"required"`
	RecurringContract  string `env:"RECURRING_CONTRACT,required" validate:"required"`
	USDCAddress        string `env:"USDC_ADDRESS,required" validate:"required"`
	ExecutorURL        string `env:"EXECUTOR_URL" envDefault:"http://localhost:8081"`

	// Ambient ops alerting — degrades to log-only when unset.
	OpsAlertEmail string `env:"OPS_ALERT_EMAIL"`
	ResendAPIKey  string `env:"RESEND_API_KEY"`
	ResendFrom    string `env:"RESEND_FROM"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SlogLevel converts the LOG_LEVEL string to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
