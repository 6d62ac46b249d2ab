package models

import (
	"sync"
)

// PortfolioManager serializes mutations per portfolio.
// A portfolio owns at most one active plan, so this also gives
// one in-flight plan update per plan id.
type PortfolioManager struct {
	locks    map[string]*sync.Mutex // portfolio id → mutex
	mapMutex sync.RWMutex           // Protects the map itself
}

// NewPortfolioManager creates a new portfolio manager
func NewPortfolioManager() *PortfolioManager {
	return &PortfolioManager{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock locks the given portfolio
func (pm *PortfolioManager) Lock(portfolioID string) {
	pm.mapMutex.Lock()
	m := pm.locks[portfolioID]
	if m == nil {
		m = &sync.Mutex{}
		pm.locks[portfolioID] = m
	}
	pm.mapMutex.Unlock()

	m.Lock()
}

// Unlock unlocks the given portfolio
func (pm *PortfolioManager) Unlock(portfolioID string) {
	pm.mapMutex.RLock()
	m := pm.locks[portfolioID]
	pm.mapMutex.RUnlock()

	if m != nil {
		m.Unlock()
	}
}

