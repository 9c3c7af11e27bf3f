package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/medflow/medflow-api/config"
	"github.com/medflow/medflow-api/internal/repository/postgres"
	"github.com/medflow/medflow-api/pkg/logger"
	redisbroker "github.com/medflow/medflow-api/pkg/messaging/redis"
	"github.com/medflow/medflow-api/pkg/metrics"
	"github.com/medflow/medflow-api/pkg/worker"
)

// workerConfig is read from the environment with the WORKER prefix,
// e.g. WORKER_DB_HOST, WORKER_REDIS_URL.
type workerConfig struct {
	DBHost         string `envconfig:"DB_HOST" default:"localhost"`
	DBPort         int    `envconfig:"DB_PORT" default:"5432"`
	DBUser         string `envconfig:"DB_USER" default:"medflow"`
	DBPassword     string `envconfig:"DB_PASSWORD" default:"medflow"`
	DBName         string `envconfig:"DB_NAME" default:"medflow"`
	DBSSLMode      string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	DBMaxIdleConns int    `envconfig:"DB_MAX_IDLE_CONNS" default:"2"`

	RedisURL          string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	RedisMaxRetries   int           `envconfig:"REDIS_MAX_RETRIES" default:"3"`
	RedisRetryBackoff time.Duration `envconfig:"REDIS_RETRY_BACKOFF" default:"100ms"`
	RedisPoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	RedisMinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`

	OutboxBatchSize     int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	OutboxPollInterval  time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	OutboxRetryAttempts int           `envconfig:"OUTBOX_RETRY_ATTEMPTS" default:"3"`
	OutboxRetryDelay    time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"1s"`

	AuditRetentionDays   int           `envconfig:"AUDIT_RETENTION_DAYS" default:"365"`
	AuditCleanupInterval time.Duration `envconfig:"AUDIT_CLEANUP_INTERVAL" default:"24h"`

	MetricsPort int `envconfig:"METRICS_PORT" default:"9090"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("WORKER", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	appLogger := logger.NewLogger(nil)
	zl := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := postgres.NewDB(config.DatabaseConfig{
		Host:         cfg.DBHost,
		Port:         cfg.DBPort,
		User:         cfg.DBUser,
		Password:     cfg.DBPassword,
		Name:         cfg.DBName,
		SSLMode:      cfg.DBSSLMode,
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.RedisURL,
		MaxRetries:   cfg.RedisMaxRetries,
		RetryBackoff: cfg.RedisRetryBackoff,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	}, &zl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	workerMetrics := metrics.NewMetrics("medflow", "worker")

	outboxRepo := postgres.NewOutboxRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.OutboxBatchSize,
		PollInterval:  cfg.OutboxPollInterval,
		RetryAttempts: cfg.OutboxRetryAttempts,
		RetryDelay:    cfg.OutboxRetryDelay,
	}, appLogger, workerMetrics)

	cleanup := worker.NewAuditCleanupWorker(auditRepo, cfg.AuditRetentionDays, cfg.AuditCleanupInterval, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()

	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		appLogger.Info("Starting worker metrics server", map[string]interface{}{"port": cfg.MetricsPort})
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("metrics server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down worker")
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "Failed to shut down metrics server")
	}

	appLogger.Info("Worker stopped")
}
