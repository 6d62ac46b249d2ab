package rebalance

import (
	"github.com/atharvakonge/portfolio-rebalancer/internal/models"
)

// CreatePlan keeps the actions that trade and wraps them in a new plan.
// Every kept action starts pending, whatever status it arrived with.
// A plan with nothing to trade is created inactive.
func (e *Engine) CreatePlan(actions []models.RebalanceAction) models.RebalancePlan {
	trades := make([]models.RebalanceAction, 0, len(actions))
	for _, a := range actions {
		if a.Direction == models.DirectionNone {
			continue
		}
		a.Status = models.StatusPending
		trades = append(trades, a)
	}
	return models.RebalancePlan{
		ID:              e.ids.NewID(),
		CreatedAt:       e.now(),
		Actions:         trades,
		IsActive:        len(trades) > 0,
		CompletedTrades: 0,
		TotalTrades:     len(trades),
	}
}

// MarkCompleted returns a copy of plan with actionID completed and the
// progress counters recomputed. Unknown and already completed ids leave the
// plan as it was. Once every action is done the plan stays inactive.
func MarkCompleted(plan models.RebalancePlan, actionID string) models.RebalancePlan {
	out := plan.Clone()
	completed := 0
	for i := range out.Actions {
		if out.Actions[i].ID == actionID {
			out.Actions[i].Status = models.StatusCompleted
		}
		if out.Actions[i].Status == models.StatusCompleted {
			completed++
		}
	}
	out.CompletedTrades = completed
	out.IsActive = completed < out.TotalTrades
	return out
}
