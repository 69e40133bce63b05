// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the bankd process configuration. All fields come from the
// environment with sensible defaults for local development.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `env:"BANKD_ADDR" envDefault:":8080"`

	// StoreBackend selects the snapshot backend: file, redis or postgres.
	StoreBackend string `env:"BANKD_STORE" envDefault:"file"`

	// SnapshotPath is the snapshot file location for the file backend.
	SnapshotPath string `env:"BANKD_SNAPSHOT_PATH" envDefault:"bankd.json"`

	// RedisAddr is the Redis address for the redis backend.
	RedisAddr     string `env:"BANKD_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"BANKD_REDIS_PASSWORD"`

	// Postgres settings for the postgres backend.
	PostgresHost     string `env:"BANKD_POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"BANKD_POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"BANKD_POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"BANKD_POSTGRES_PASSWORD" envDefault:"postgres"`
	PostgresDB       string `env:"BANKD_POSTGRES_DB" envDefault:"bankledger"`
	PostgresSSLMode  string `env:"BANKD_POSTGRES_SSLMODE" envDefault:"disable"`

	// Ledger policy knobs.
	MinOpeningDeposit    float64 `env:"BANKD_MIN_OPENING_DEPOSIT" envDefault:"100"`
	MinBalanceSavings    float64 `env:"BANKD_MIN_BALANCE_SAVINGS" envDefault:"100"`
	MinBalanceCurrent    float64 `env:"BANKD_MIN_BALANCE_CURRENT" envDefault:"0"`
	DailyWithdrawalLimit float64 `env:"BANKD_DAILY_WITHDRAWAL_LIMIT" envDefault:"50000"`

	// Admin bootstrap credentials. Used only when no snapshot exists yet.
	AdminUser     string `env:"BANKD_ADMIN_USER" envDefault:"admin"`
	AdminPassword string `env:"BANKD_ADMIN_PASSWORD" envDefault:"admin123"`

	// MetricsNamespace prefixes all Prometheus metric names.
	MetricsNamespace string `env:"BANKD_METRICS_NAMESPACE" envDefault:"bankd"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	switch cfg.StoreBackend {
	case "file", "redis", "postgres":
	default:
		return cfg, fmt.Errorf("config: unknown store backend %q", cfg.StoreBackend)
	}
	return cfg, nil
}
