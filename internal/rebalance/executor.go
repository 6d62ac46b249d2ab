package rebalance

import (
	"errors"
	"fmt"

	"github.com/atharvakonge/portfolio-rebalancer/internal/models"
)

// ErrInvalidActionDirection is returned when executing an action that does not trade
var ErrInvalidActionDirection = errors.New("invalid action direction")

// TradeResult is everything a caller needs to apply one executed action
type TradeResult struct {
	UpdatedHolding models.Holding
	Transaction    models.Transaction
	UpdatedAction  models.RebalanceAction
	CashDelta      float64 // Positive increases cash
}

// Execute applies action to holding and records the ledger entry.
// It neither updates the plan nor applies CashDelta; callers do both,
// the plan through MarkCompleted.
func (e *Engine) Execute(action models.RebalanceAction, holding models.Holding, planID string) (TradeResult, error) {
	amount := action.SharesToTrade * holding.Price

	updated := holding
	var cashDelta float64
	switch action.Direction {
	case models.DirectionBuy:
		updated.Shares += action.SharesToTrade
		cashDelta = -amount
	case models.DirectionSell:
		updated.Shares -= action.SharesToTrade
		cashDelta = amount
	default:
		return TradeResult{}, fmt.Errorf("execute %s on %s: %w %q",
			action.ID, action.Ticker, ErrInvalidActionDirection, action.Direction)
	}
	updated = Revalue(updated)

	completed := action
	completed.Status = models.StatusCompleted

	return TradeResult{
		UpdatedHolding: updated,
		Transaction: models.Transaction{
			ID:              e.ids.NewID(),
			Timestamp:       e.now(),
			Ticker:          action.Ticker,
			Direction:       action.Direction,
			Shares:          action.SharesToTrade,
			Price:           holding.Price,
			RebalancePlanID: planID,
		},
		UpdatedAction: completed,
		CashDelta:     cashDelta,
	}, nil
}
