// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/atharvakonge/portfolio-rebalancer/internal/db"
	"github.com/atharvakonge/portfolio-rebalancer/internal/models"
	"github.com/atharvakonge/portfolio-rebalancer/internal/rebalance"
	"github.com/joho/godotenv"
)

// Store backends
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	Port            string
	GinMode         string
	LogLevel        string
	LogPretty       bool
	Store           string // postgres or memory
	Database        db.Config
	NumWorkers      int
	BenchmarkTicker string
	DefaultSettings models.Settings
	EnvFileLoaded   bool
}

// Load reads an optional .env file, then the environment.
// A missing .env file is not an error.
func Load(envFiles ...string) (*Config, error) {
	loaded := godotenv.Load(envFiles...) == nil

	cfg := &Config{
		EnvFileLoaded:   loaded,
		Port:            getEnv("PORT", "8080"),
		GinMode:         getEnv("GIN_MODE", "debug"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Store:           strings.ToLower(getEnv("STORE", StorePostgres)),
		BenchmarkTicker: strings.ToUpper(getEnv("BENCHMARK_TICKER", rebalance.DefaultBenchmarkTicker)),
		Database: db.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5433"),
			User:     getEnv("DB_USER", "trader"),
			Password: getEnv("DB_PASSWORD", "trading123"),
			Name:     getEnv("DB_NAME", "rebalancer_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}

	var err error
	if cfg.LogPretty, err = getBool("LOG_PRETTY", cfg.GinMode != "release"); err != nil {
		return nil, err
	}
	if cfg.NumWorkers, err = getInt("NUM_WORKERS", 5); err != nil {
		return nil, err
	}
	if cfg.DefaultSettings.TargetBenchmarkPct, err = getFloat("DEFAULT_BENCHMARK_PCT", 50); err != nil {
		return nil, err
	}
	if cfg.DefaultSettings.TargetCashPct, err = getFloat("DEFAULT_CASH_PCT", 0); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	if c.Store != StorePostgres && c.Store != StoreMemory {
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}
	if c.NumWorkers < 1 {
		return fmt.Errorf("NUM_WORKERS must be at least 1, got %d", c.NumWorkers)
	}
	for name, pct := range map[string]float64{
		"DEFAULT_BENCHMARK_PCT": c.DefaultSettings.TargetBenchmarkPct,
		"DEFAULT_CASH_PCT":      c.DefaultSettings.TargetCashPct,
	} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("%s must be within [0, 100], got %v", name, pct)
		}
	}
	return nil
}

// Helper function to get environment variable with default
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
