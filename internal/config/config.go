package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Attention check modes. Legacy keeps the deployed behaviour where the
// literal answer 1 is rejected; instructed requires the answer the survey
// text asks for.
const (
	AttentionCheckLegacy     = "legacy"
	AttentionCheckInstructed = "instructed"
)

// Config holds server settings read from the environment.
type Config struct {
	Port        string
	Environment string

	DBDriver    string // postgres | sqlite
	DatabaseURL string
	SQLitePath  string

	LogLevel string
	LogFile  string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	ElasticsearchURL string
	SearchIndex      string

	OTelEnabled      bool
	OTelEndpoint     string
	OTelSamplingRate float64

	CORSAllowOrigins   []string
	RateLimitPerMinute int

	AttentionCheckMode string
	IPHashSalt         string

	RequireRedis         bool
	RequireElasticsearch bool

	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables. Call godotenv.Load
// first to pick up a .env file.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8787"),
		Environment:          getEnvOrDefault("ENVIRONMENT", "development"),
		DBDriver:             strings.ToLower(getEnvOrDefault("DB_DRIVER", "postgres")),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		SQLitePath:           getEnvOrDefault("SQLITE_PATH", "searchstudy.db"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:              getEnvOrDefault("LOG_FILE", "searchstudy.log"),
		RedisHost:            os.Getenv("REDIS_HOST"),
		RedisPort:            getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		ElasticsearchURL:     os.Getenv("ELASTICSEARCH_URL"),
		SearchIndex:          getEnvOrDefault("SEARCH_INDEX", "study_results"),
		OTelEnabled:          getBoolEnv("OTEL_ENABLED", false),
		OTelEndpoint:         getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTelSamplingRate:     getFloatEnv("OTEL_SAMPLING_RATE", 1.0),
		CORSAllowOrigins:     splitList(getEnvOrDefault("CORS_ALLOW_ORIGINS", "*")),
		RateLimitPerMinute:   getIntEnv("RATE_LIMIT_PER_MINUTE", 600),
		AttentionCheckMode:   strings.ToLower(getEnvOrDefault("ATTENTION_CHECK_MODE", AttentionCheckLegacy)),
		IPHashSalt:           os.Getenv("IP_HASH_SALT"),
		RequireRedis:         getBoolEnv("STUDY_REQUIRE_REDIS", false),
		RequireElasticsearch: getBoolEnv("STUDY_REQUIRE_ELASTICSEARCH", false),
		ShutdownTimeout:      30 * time.Second,
	}

	if cfg.DBDriver == "postgres" && cfg.DatabaseURL == "" {
		cfg.DatabaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnvOrDefault("DB_HOST", "localhost"),
			getEnvOrDefault("DB_PORT", "5432"),
			getEnvOrDefault("DB_USER", "postgres"),
			os.Getenv("DB_PASSWORD"),
			getEnvOrDefault("DB_NAME", "searchstudy"),
			getEnvOrDefault("DB_SSLMODE", "disable"),
		)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	switch c.AttentionCheckMode {
	case AttentionCheckLegacy, AttentionCheckInstructed:
	default:
		return fmt.Errorf("ATTENTION_CHECK_MODE must be %q or %q, got %q",
			AttentionCheckLegacy, AttentionCheckInstructed, c.AttentionCheckMode)
	}
	if c.RequireRedis && c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST environment variable not set - required when STUDY_REQUIRE_REDIS=true")
	}
	if c.RequireElasticsearch && c.ElasticsearchURL == "" {
		return fmt.Errorf("ELASTICSEARCH_URL environment variable not set - required when STUDY_REQUIRE_ELASTICSEARCH=true")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getIntEnv(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getFloatEnv(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
