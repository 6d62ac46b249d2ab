package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"PORT", "GIN_MODE", "LOG_LEVEL", "LOG_PRETTY", "STORE", "NUM_WORKERS",
		"BENCHMARK_TICKER", "DEFAULT_BENCHMARK_PCT", "DEFAULT_CASH_PCT",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, 5, cfg.NumWorkers)
	assert.Equal(t, "QQQ", cfg.BenchmarkTicker)
	assert.Equal(t, 50.0, cfg.DefaultSettings.TargetBenchmarkPct)
	assert.Equal(t, 0.0, cfg.DefaultSettings.TargetCashPct)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "5433", cfg.Database.Port)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE", "Memory")
	t.Setenv("NUM_WORKERS", "3")
	t.Setenv("BENCHMARK_TICKER", "voo")
	t.Setenv("DEFAULT_CASH_PCT", "10")
	t.Setenv("LOG_PRETTY", "false")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 3, cfg.NumWorkers)
	assert.Equal(t, "VOO", cfg.BenchmarkTicker)
	assert.Equal(t, 10.0, cfg.DefaultSettings.TargetCashPct)
	assert.False(t, cfg.LogPretty)
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that are already set, even empty ones.
	os.Unsetenv("PORT")
	os.Unsetenv("NUM_WORKERS")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9090\nNUM_WORKERS=2\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("PORT")
		os.Unsetenv("NUM_WORKERS")
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 2, cfg.NumWorkers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"NUM_WORKERS", "many"},
		{"NUM_WORKERS", "0"},
		{"STORE", "sqlite"},
		{"DEFAULT_BENCHMARK_PCT", "120"},
		{"DEFAULT_CASH_PCT", "ten"},
		{"LOG_PRETTY", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
