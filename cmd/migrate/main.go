package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/zfogg/searchstudy/internal/config"
	"github.com/zfogg/searchstudy/internal/database"
	"github.com/zfogg/searchstudy/internal/logger"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: .env file not found, using system environment variables")
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		if err := runMigrationsUp(); err != nil {
			fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Println("Usage: migrate [up]")
		fmt.Println("  up - Create or update all study tables and indexes")
		os.Exit(1)
	}
}

func runMigrationsUp() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		return err
	}
	defer logger.Close()

	logger.Log.Info("Connecting to database...", zap.String("driver", cfg.DBDriver))
	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer database.Close(db)

	logger.Log.Info("Running migrations...")
	if err := database.Migrate(db); err != nil {
		return err
	}

	logger.Log.Info("All migrations completed successfully")
	return nil
}
