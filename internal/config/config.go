package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr              string `env:"ADDR" envDefault:":8080"`
	DBPath            string `env:"DB_PATH" envDefault:"file:casefile.db"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"INFO"`
	MaxAttempts       int    `env:"MAX_ATTEMPTS" envDefault:"3"`
	SessionCookieName string `env:"SESSION_COOKIE_NAME" envDefault:"cf_session"`
	SessionTTLDays    int    `env:"SESSION_TTL_DAYS" envDefault:"365"`
	AccountHeader     string `env:"ACCOUNT_HEADER" envDefault:"X-Account-ID"`
	MigrationWorkers  int    `env:"MIGRATION_WORKER_COUNT" envDefault:"1"`
	MigrationQueue    int    `env:"MIGRATION_QUEUE_SIZE" envDefault:"32"`
	Seed              bool   `env:"SEED" envDefault:"false"`
}

// Load reads configuration from a .env file (if present) and environment
// variables, applying defaults when values are missing.
func Load() (Config, error) {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for invalid values, accumulating all
// problems into a single error.
func (c Config) Validate() error {
	var problems []string

	if c.Addr == "" {
		problems = append(problems, "ADDR cannot be empty")
	}
	if c.DBPath == "" {
		problems = append(problems, "DB_PATH cannot be empty")
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		problems = append(problems, fmt.Sprintf("LOG_LEVEL %q is not a valid level", c.LogLevel))
	}
	if c.MaxAttempts < 1 || c.MaxAttempts > 10 {
		problems = append(problems, fmt.Sprintf("MAX_ATTEMPTS must be between 1 and 10, got %d", c.MaxAttempts))
	}
	if c.SessionCookieName == "" {
		problems = append(problems, "SESSION_COOKIE_NAME cannot be empty")
	}
	if c.SessionTTLDays < 1 {
		problems = append(problems, fmt.Sprintf("SESSION_TTL_DAYS must be positive, got %d", c.SessionTTLDays))
	}
	if c.MigrationWorkers < 1 {
		problems = append(problems, fmt.Sprintf("MIGRATION_WORKER_COUNT must be positive, got %d", c.MigrationWorkers))
	}
	if c.MigrationQueue < 1 {
		problems = append(problems, fmt.Sprintf("MIGRATION_QUEUE_SIZE must be positive, got %d", c.MigrationQueue))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
