// Command bankd serves the ledger over HTTP, loading state from the
// configured snapshot store on startup and saving it back on shutdown.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bank-ledger/pkg/api"
	"bank-ledger/pkg/auth"
	"bank-ledger/pkg/config"
	"bank-ledger/pkg/ledger"
	"bank-ledger/pkg/logging"
	prommetrics "bank-ledger/pkg/metrics/prometheus"
	"bank-ledger/pkg/store"
)

func main() {
	logger, err := logging.NewLoggerFromEnv()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	logger.Info("starting bankd",
		zap.String("addr", cfg.Addr),
		zap.String("store", cfg.StoreBackend),
	)

	backend, err := newStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}
	resilient := store.NewResilientStore(backend, storeResilience(logger))
	defer resilient.Close()
	saver := store.NewSaver(resilient)

	l, err := ledger.New(auth.NewPBKDF2Provider(), ledger.Config{
		MinOpeningDeposit:    decimal.NewFromFloat(cfg.MinOpeningDeposit),
		MinBalanceSavings:    decimal.NewFromFloat(cfg.MinBalanceSavings),
		MinBalanceCurrent:    decimal.NewFromFloat(cfg.MinBalanceCurrent),
		DailyWithdrawalLimit: decimal.NewFromFloat(cfg.DailyWithdrawalLimit),
		AdminUser:            cfg.AdminUser,
		AdminPassword:        cfg.AdminPassword,
		Logger:               logger,
	})
	if err != nil {
		logger.Fatal("failed to create ledger", zap.Error(err))
	}

	loadCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	snap, err := resilient.Load(loadCtx)
	cancel()
	switch {
	case err == nil:
		if err := l.Restore(snap); err != nil {
			logger.Fatal("failed to restore snapshot", zap.Error(err))
		}
		logger.Info("snapshot restored",
			zap.Int("accounts", len(snap.Accounts)),
			zap.Time("taken_at", snap.Meta.Timestamp),
		)
	case store.IsNotFound(err):
		logger.Info("no snapshot found, starting fresh")
	default:
		logger.Fatal("failed to load snapshot", zap.Error(err))
	}

	collector := prommetrics.NewCollector(cfg.MetricsNamespace)
	prometheus.MustRegister(collector)

	serverConfig := api.DefaultServerConfig()
	serverConfig.Addr = cfg.Addr
	server := api.NewServer(l, saver, collector, logger, serverConfig)
	server.Router().Handle("/metrics", promhttp.Handler()).Methods("GET")
	server.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	if err := saver.Save(shutdownCtx, l.Snapshot); err != nil {
		logger.Error("final snapshot save failed", zap.Error(err))
	} else {
		logger.Info("snapshot saved")
	}
}

// newStore builds the configured snapshot backend.
func newStore(cfg config.Config, logger *logging.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case "redis":
		redisConfig := store.DefaultRedisConfig()
		redisConfig.Addr = cfg.RedisAddr
		redisConfig.Password = cfg.RedisPassword
		return store.NewRedisStore(redisConfig)
	case "postgres":
		return store.NewPostgresStore(store.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPassword,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSLMode,
		})
	default:
		return store.NewFileStore(cfg.SnapshotPath)
	}
}

func storeResilience(logger *logging.Logger) store.ResilientConfig {
	rc := store.DefaultResilientConfig()
	rc.Logger = logger
	return rc
}
