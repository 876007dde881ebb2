package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/zfogg/searchstudy/internal/config"
	"github.com/zfogg/searchstudy/internal/logger"
	"github.com/zfogg/searchstudy/internal/models"
	"github.com/zfogg/searchstudy/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// DB holds the process-wide connection opened by Initialize
var DB *gorm.DB

// Initialize opens the configured database and stores it in DB.
func Initialize(cfg *config.Config) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	DB = db
	return db, nil
}

// Open connects to PostgreSQL or SQLite depending on cfg.DBDriver.
func Open(cfg *config.Config) (*gorm.DB, error) {
	level := gormLogger.Warn
	if cfg.Environment == "development" && cfg.LogLevel == "debug" {
		level = gormLogger.Info
	}

	gormCfg := &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				SlowThreshold:             500 * time.Millisecond,
				LogLevel:                  level,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath + "?_foreign_keys=on&_busy_timeout=5000")
	default:
		dialector = postgres.Open(cfg.DatabaseURL)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Use(telemetry.GORMTracingPlugin()); err != nil {
		logger.Log.Warn("Failed to register GORM tracing plugin", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.DBDriver == "sqlite" {
		// one writer at a time
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	logger.Log.Info("Database connected",
		zap.String("driver", cfg.DBDriver),
	)
	return db, nil
}

// Migrate runs auto-migration for all models and creates the indexes
// AutoMigrate cannot express.
func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.Log.Info("Database migrations completed")
	return nil
}

func createIndexes(db *gorm.DB) error {
	statements := []string{
		// single open session per participant
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_open ON sessions (participant_id) WHERE session_end_time IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_sessions_participant_start ON sessions (participant_id, session_start_time)",
		"CREATE INDEX IF NOT EXISTS idx_session_timings_open ON session_timings (participant_id) WHERE ended_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_scroll_events_session_recorded ON scroll_events (session_id, recorded_at)",
		"CREATE INDEX IF NOT EXISTS idx_result_logs_participant_session ON search_result_logs (participant_id, session_id)",
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks database connectivity
func Health(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Truncate removes every study row. Used by the seeder's clean command.
func Truncate(db *gorm.DB) error {
	all := models.All()
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(all[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
