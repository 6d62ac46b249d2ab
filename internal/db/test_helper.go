package db

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/atharvakonge/portfolio-rebalancer/internal/models"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// SetupTestDB connects to the database named by TEST_DATABASE_DSN,
// skipping the test when it is not set
func SetupTestDB(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := OpenDSN(ctx, dsn, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	return store
}

// CleanupTestDB deletes all rows written by tests
func CleanupTestDB(t *testing.T, store *PostgresStore) {
	t.Helper()

	tables := []string{"rebalance_transactions", "holdings", "portfolios"}
	for _, table := range tables {
		_, err := store.DB().Exec(fmt.Sprintf("DELETE FROM %s", pq.QuoteIdentifier(table)))
		if err != nil {
			t.Logf("Warning: Failed to cleanup table %s: %v", table, err)
		}
	}
}

// NewTestPortfolio builds a portfolio with a unique id and two holdings
func NewTestPortfolio(name string, cash float64) models.Portfolio {
	id := fmt.Sprintf("%s_%d", name, time.Now().UnixNano())
	w := 50.0
	now := time.Now().UTC().Truncate(time.Microsecond)
	return models.Portfolio{
		ID:   id,
		Name: name,
		Holdings: []models.Holding{
			{ID: id + "-qqq", Ticker: "QQQ", Shares: 2, Price: 400, Value: 800},
			{ID: id + "-nvda", Ticker: "NVDA", Shares: 1, Price: 700, Value: 700, TargetWeight: &w},
		},
		Settings:     models.Settings{TargetBenchmarkPct: 50},
		CashPosition: cash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
