package services

import (
	"context"
	"sync"
	"testing"

	"github.com/atharvakonge/portfolio-rebalancer/internal/db"
	"github.com/atharvakonge/portfolio-rebalancer/internal/models"
	"github.com/atharvakonge/portfolio-rebalancer/internal/rebalance"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.PortfolioEvent
}

func (r *recordingPublisher) Publish(e models.PortfolioEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestService(t *testing.T) (*PortfolioService, *db.MemoryStore, *recordingPublisher) {
	t.Helper()
	store := db.NewMemoryStore()
	events := &recordingPublisher{}
	svc := NewPortfolioService(
		store,
		rebalance.NewEngine(),
		models.Settings{TargetBenchmarkPct: 50},
		events,
		zerolog.Nop(),
	)
	return svc, store, events
}

// seededPortfolio opens the default QQQ/NVDA/TSLA portfolio with some cash
func seededPortfolio(t *testing.T, svc *PortfolioService, cash float64) models.Portfolio {
	t.Helper()
	p, err := svc.CreatePortfolio(context.Background(), models.CreatePortfolioRequest{Name: "test", Seed: true, CashPosition: cash})
	require.NoError(t, err)
	return p
}

func holdingByTicker(t *testing.T, p models.Portfolio, ticker string) models.Holding {
	t.Helper()
	for _, h := range p.Holdings {
		if h.Ticker == ticker {
			return h
		}
	}
	t.Fatalf("holding %s not found", ticker)
	return models.Holding{}
}
