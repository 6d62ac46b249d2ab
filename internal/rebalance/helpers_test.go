package rebalance

import (
	"fmt"
	"time"

	"github.com/atharvakonge/portfolio-rebalancer/internal/models"
)

// sequenceIDs hands out predictable identifiers
type sequenceIDs struct {
	prefix string
	n      int
}

func (s *sequenceIDs) NewID() string {
	s.n++
	return fmt.Sprintf("%s-%d", s.prefix, s.n)
}

var fixedNow = time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return NewEngine(
		WithIDGenerator(&sequenceIDs{prefix: "id"}),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func weight(w float64) *float64 {
	return &w
}

func holding(ticker string, shares, price float64) models.Holding {
	return models.Holding{Ticker: ticker, Shares: shares, Price: price, Value: shares * price}
}

func weighted(ticker string, shares, price, w float64) models.Holding {
	h := holding(ticker, shares, price)
	h.TargetWeight = weight(w)
	return h
}

func byTicker(actions []models.RebalanceAction) map[string]models.RebalanceAction {
	out := make(map[string]models.RebalanceAction, len(actions))
	for _, a := range actions {
		out[a.Ticker] = a
	}
	return out
}
