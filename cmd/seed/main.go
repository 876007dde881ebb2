package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/zfogg/searchstudy/internal/config"
	"github.com/zfogg/searchstudy/internal/database"
	"github.com/zfogg/searchstudy/internal/logger"
	"github.com/zfogg/searchstudy/internal/search"
	"github.com/zfogg/searchstudy/internal/seed"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "dev":
		participants := 20
		if len(os.Args) > 2 {
			n, err := strconv.Atoi(os.Args[2])
			if err != nil || n < 1 {
				log.Fatalf("❌ Invalid participant count %q", os.Args[2])
			}
			participants = n
		}
		seedDev(participants)
	case "clean":
		cleanSeed()
	default:
		fmt.Println("Usage: seed [dev [participants]|clean]")
		fmt.Println("  dev   - Seed development database with synthetic participants")
		fmt.Println("  clean - Remove all study data (use with caution)")
		os.Exit(1)
	}
}

func open() (*config.Config, *seed.Seeder) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("❌ Failed to migrate database: %v", err)
	}
	log.Println("✅ Database connected")

	return cfg, seed.NewSeeder(db, cfg.AttentionCheckMode)
}

func seedDev(participants int) {
	log.Println("🌱 Seeding development database...")
	cfg, seeder := open()
	defer logger.Close()

	if cfg.ElasticsearchURL != "" {
		provider, err := search.NewESProvider(cfg.ElasticsearchURL, cfg.SearchIndex, nil)
		if err != nil {
			log.Printf("⚠️  Failed to create Elasticsearch client: %v\n", err)
		} else {
			seeder.SetSearchIndex(provider)
			log.Println("✅ Elasticsearch configured for corpus seeding")
		}
	} else {
		log.Println("⚠️  ELASTICSEARCH_URL not set - skipping search corpus")
	}

	if err := seeder.SeedDev(context.Background(), participants); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	log.Printf("✅ Seeded %d participants\n", participants)
}

func cleanSeed() {
	log.Println("🧹 Cleaning study data...")
	_, seeder := open()
	defer logger.Close()

	if err := seeder.Clean(); err != nil {
		log.Fatalf("❌ Clean failed: %v", err)
	}
	log.Println("✅ Study data removed")
}
