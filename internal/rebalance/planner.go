package rebalance

import (
	"math"

	"github.com/atharvakonge/portfolio-rebalancer/internal/models"
)

// ComputeActions turns a balance into one action per holding.
//
// Cash is a single budget spent in a fixed order: the benchmark holding
// first, then individual holdings in the order given, then one no-op
// placeholder per invalid holding. When cash is short, the benchmark and
// then the earliest individual holdings are served first regardless of
// their weights or shortfall. Sales are never limited and return their
// proceeds to the budget.
//
// When the cash position is below its target no new purchases are funded;
// only proceeds from sales earlier in the order can pay for later buys.
func (e *Engine) ComputeActions(holdings []models.Holding, balance models.Balance, settings models.Settings) []models.RebalanceAction {
	targetCashValue := balance.TotalValue * settings.TargetCashPct / 100
	cashDelta := targetCashValue - balance.CashPosition

	var availableCash, cashToRaise float64
	if cashDelta > 0 {
		cashToRaise = cashDelta
	} else {
		availableCash = balance.CashPosition - targetCashValue
	}

	var (
		benchmark   *models.Holding
		individuals []models.Holding
		invalid     []models.Holding
	)
	for i := range holdings {
		h := holdings[i]
		switch {
		case !IsValid(h):
			invalid = append(invalid, h)
		case e.IsBenchmark(h.Ticker) && benchmark == nil:
			benchmark = &holdings[i]
		default:
			individuals = append(individuals, h)
		}
	}

	actions := make([]models.RebalanceAction, 0, len(holdings))

	if benchmark != nil {
		change := balance.Benchmark.ShareChange
		if change > 0 {
			availableCash -= change * benchmark.Price
		} else if change < 0 {
			availableCash += -change * benchmark.Price
		}
		actions = append(actions, e.newAction(benchmark.Ticker, benchmark.Shares, benchmark.Shares+change))
	}

	var weightSum float64
	for _, h := range individuals {
		if !e.IsBenchmark(h.Ticker) {
			weightSum += h.Weight()
		}
	}

	for _, h := range individuals {
		// Extra rows of the benchmark ticker are counted in the benchmark bucket
		// and left alone.
		if e.IsBenchmark(h.Ticker) {
			actions = append(actions, e.newAction(h.Ticker, h.Shares, h.Shares))
			continue
		}

		var weight float64
		switch {
		case weightSum > 0:
			weight = h.Weight() / weightSum
		case balance.Individual.CurrentValue > 0:
			weight = Value(h) / balance.Individual.CurrentValue
		}
		targetValue := weight * balance.Individual.TargetValue

		wanted := h.Shares
		if h.Price > 0 {
			wanted = roundShares(targetValue / h.Price)
		}

		target := h.Shares
		switch {
		case wanted > h.Shares && availableCash > 0:
			affordable := math.Floor(availableCash / h.Price)
			target = h.Shares + math.Min(wanted-h.Shares, affordable)
		case wanted < h.Shares:
			target = wanted
		}

		action := e.newAction(h.Ticker, h.Shares, target)
		switch action.Direction {
		case models.DirectionBuy:
			availableCash -= action.SharesToTrade * h.Price
		case models.DirectionSell:
			availableCash += action.SharesToTrade * h.Price
		}
		actions = append(actions, action)
	}

	for _, h := range invalid {
		ticker := h.Ticker
		if ticker == "" {
			ticker = NoTickerPlaceholder
		}
		actions = append(actions, e.newAction(ticker, h.Shares, h.Shares))
	}

	e.log.Debug().
		Float64("total_value", balance.TotalValue).
		Float64("cash_to_raise", cashToRaise).
		Float64("cash_left", availableCash).
		Int("actions", len(actions)).
		Msg("Computed rebalance actions")

	return actions
}

func (e *Engine) newAction(ticker string, current, target float64) models.RebalanceAction {
	direction := models.DirectionNone
	switch {
	case target > current:
		direction = models.DirectionBuy
	case target < current:
		direction = models.DirectionSell
	}
	return models.RebalanceAction{
		ID:            e.ids.NewID(),
		Ticker:        ticker,
		CurrentShares: current,
		TargetShares:  target,
		SharesToTrade: math.Abs(target - current),
		Direction:     direction,
		Status:        models.StatusPending,
	}
}
