package db

import (
	"context"
	"errors"

	"github.com/atharvakonge/portfolio-rebalancer/internal/models"
)

// ErrNotFound is returned when a portfolio does not exist
var ErrNotFound = errors.New("not found")

// Store persists portfolios, their active plan and the trade ledger.
// Portfolios go in and come out as copies; callers never share state with the store.
type Store interface {
	CreatePortfolio(ctx context.Context, p models.Portfolio) error
	GetPortfolio(ctx context.Context, id string) (models.Portfolio, error)
	SavePortfolio(ctx context.Context, p models.Portfolio) error

	// RecordTrade saves the portfolio and appends tx in one unit of work
	RecordTrade(ctx context.Context, p models.Portfolio, tx models.Transaction) error

	// ListTransactions returns the ledger newest first; limit <= 0 means all
	ListTransactions(ctx context.Context, portfolioID string, limit int) ([]models.Transaction, error)

	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
