// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	Environment    string
	HTTPAddr       string
	DatabaseURL    string
	RedisAddr      string
	AuditDBPath    string
	ConvertTimeout time.Duration
	RatePerMinute  int
}

// Load reads configuration from environment variables. A .env file in the
// working directory is merged in first when present; real environment
// variables always win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:    getenv("APP_ENV", "development"),
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		AuditDBPath:    getenv("AUDIT_DB_PATH", "audit.db"),
		ConvertTimeout: time.Duration(getenvInt("CONVERT_TIMEOUT_SECONDS", 30)) * time.Second,
		RatePerMinute:  getenvInt("RATE_LIMIT_PER_MINUTE", 120),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable. Development gets by
// with a database alone; production and staging also need the rate-limit
// backend and a durable audit sink.
func (c *Config) Validate() error {
	var missing []string

	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if c.Environment == "production" || c.Environment == "staging" {
		if c.RedisAddr == "" {
			missing = append(missing, "REDIS_ADDR")
		}
		if c.AuditDBPath == "" {
			missing = append(missing, "AUDIT_DB_PATH")
		}
	}

	if len(missing) > 0 {
		return errors.New("missing required environment variables: " + strings.Join(missing, ", "))
	}

	if c.ConvertTimeout <= 0 {
		return fmt.Errorf("CONVERT_TIMEOUT_SECONDS must be positive, got %s", c.ConvertTimeout)
	}
	if c.RatePerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RatePerMinute)
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
