package db

import (
	"context"
	"sort"
	"sync"

	"github.com/atharvakonge/portfolio-rebalancer/internal/models"
)

// MemoryStore keeps everything in process memory
type MemoryStore struct {
	mu           sync.RWMutex
	portfolios   map[string]models.Portfolio
	transactions map[string][]models.Transaction // portfolio id → ledger in insertion order
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		portfolios:   make(map[string]models.Portfolio),
		transactions: make(map[string][]models.Transaction),
	}
}

func (s *MemoryStore) CreatePortfolio(_ context.Context, p models.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolios[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) GetPortfolio(_ context.Context, id string) (models.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.portfolios[id]
	if !ok {
		return models.Portfolio{}, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) SavePortfolio(_ context.Context, p models.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.portfolios[p.ID]; !ok {
		return ErrNotFound
	}
	s.portfolios[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) RecordTrade(_ context.Context, p models.Portfolio, tx models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.portfolios[p.ID]; !ok {
		return ErrNotFound
	}
	s.portfolios[p.ID] = p.Clone()
	s.transactions[p.ID] = append(s.transactions[p.ID], tx)
	return nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, portfolioID string, limit int) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.portfolios[portfolioID]; !ok {
		return nil, ErrNotFound
	}
	ledger := s.transactions[portfolioID]
	out := make([]models.Transaction, len(ledger))
	for i, tx := range ledger {
		out[len(ledger)-1-i] = tx
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
