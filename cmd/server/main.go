package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/zfogg/searchstudy/internal/cache"
	"github.com/zfogg/searchstudy/internal/config"
	"github.com/zfogg/searchstudy/internal/container"
	"github.com/zfogg/searchstudy/internal/database"
	"github.com/zfogg/searchstudy/internal/logger"
	"github.com/zfogg/searchstudy/internal/search"
	"github.com/zfogg/searchstudy/internal/server"
	"github.com/zfogg/searchstudy/internal/telemetry"
	"github.com/zfogg/searchstudy/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const version = "0.1.0"

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: .env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Log.Info("=== Search study server starting ===",
		zap.String("version", version),
		zap.String("environment", cfg.Environment),
		zap.String("db_driver", cfg.DBDriver),
	)

	if err := run(cfg); err != nil {
		logger.FatalWithFields("Server failed", err)
	}
}

func run(cfg *config.Config) error {
	c := container.New(cfg)
	ctx := context.Background()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		c.Cleanup(shutdownCtx)
	}()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:  "searchstudy-api",
		Version:      version,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTelEndpoint,
		Enabled:      cfg.OTelEnabled,
		SamplingRate: cfg.OTelSamplingRate,
	})
	if err != nil {
		logger.WarnWithFields("Tracing disabled: failed to initialize tracer", err)
	}
	c.OnCleanup(shutdownTracing)

	db, err := database.Initialize(cfg)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	c.SetDB(db).OnCleanup(func(context.Context) error { return database.Close(db) })

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	validator := validation.NewServiceValidator(requiredServices(cfg)...)
	validator.Register("database", func(ctx context.Context) error { return database.Health(ctx, db) })

	if cfg.RedisHost != "" {
		redisClient, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			logger.WarnWithFields("Redis unavailable, using process-local cache", err)
		} else {
			c.SetRedis(redisClient).OnCleanup(func(context.Context) error { return redisClient.Close() })
			validator.Register("redis", redisClient.Ping)
		}
	}

	if cfg.ElasticsearchURL != "" {
		provider, err := search.NewESProvider(cfg.ElasticsearchURL, cfg.SearchIndex, nil)
		if err != nil {
			logger.WarnWithFields("Search provider unavailable", err)
		} else if err := provider.Ping(ctx); err != nil {
			logger.WarnWithFields("Elasticsearch unreachable, search disabled", err)
			validator.Register("elasticsearch", provider.Ping)
		} else {
			c.SetSearch(provider)
			validator.Register("elasticsearch", provider.Ping)
		}
	}

	if err := validator.ValidateServices(ctx); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	logDatabaseStats(db)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return server.New(c).Run(ctx)
}

func requiredServices(cfg *config.Config) []string {
	required := []string{"database"}
	if cfg.RequireRedis {
		required = append(required, "redis")
	}
	if cfg.RequireElasticsearch {
		required = append(required, "elasticsearch")
	}
	return required
}

func logDatabaseStats(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	stats := sqlDB.Stats()
	logger.Log.Info("Database pool ready",
		zap.Int("max_open", stats.MaxOpenConnections),
		zap.Int("open", stats.OpenConnections),
	)
}
