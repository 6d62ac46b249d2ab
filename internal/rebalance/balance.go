package rebalance

import (
	"math"

	"github.com/atharvakonge/portfolio-rebalancer/internal/models"
)

// ComputeBalance reports current and target values of the benchmark,
// individual and cash buckets.
//
// Invalid holdings are ignored. The first valid holding matching the
// benchmark ticker is the benchmark; further rows with that ticker add to the
// benchmark bucket value but are never traded. Benchmark.ShareChange is the
// whole-share delta toward the benchmark target, with purchases capped at what
// the whole cash position can pay for.
func (e *Engine) ComputeBalance(holdings []models.Holding, settings models.Settings, cashPosition float64) models.Balance {
	var (
		benchmark       *models.Holding
		benchmarkValue  float64
		individualValue float64
	)
	for i := range holdings {
		h := holdings[i]
		if !IsValid(h) {
			continue
		}
		if e.IsBenchmark(h.Ticker) {
			if benchmark == nil {
				benchmark = &holdings[i]
			}
			benchmarkValue += Value(h)
			continue
		}
		individualValue += Value(h)
	}

	investedValue := benchmarkValue + individualValue
	totalValue := investedValue + cashPosition

	// Not clamped: settings above 100% give a negative individual target.
	targetIndividualPct := 100 - settings.TargetBenchmarkPct - settings.TargetCashPct

	targetBenchmarkValue := totalValue * settings.TargetBenchmarkPct / 100
	targetIndividualValue := totalValue * targetIndividualPct / 100
	targetCashValue := totalValue * settings.TargetCashPct / 100

	pct := func(v float64) float64 {
		if totalValue > 0 {
			return v / totalValue * 100
		}
		return 0
	}

	var shareChange float64
	if benchmark != nil && benchmark.Price > 0 {
		shareChange = roundShares((targetBenchmarkValue - benchmarkValue) / benchmark.Price)
		if shareChange > 0 {
			affordable := math.Max(0, math.Floor(cashPosition/benchmark.Price))
			shareChange = math.Min(shareChange, affordable)
		}
	}

	return models.Balance{
		Benchmark: models.BenchmarkBalance{
			BucketBalance: models.BucketBalance{
				CurrentValue:          benchmarkValue,
				TargetValue:           targetBenchmarkValue,
				PercentageOfPortfolio: pct(benchmarkValue),
			},
			ShareChange: shareChange,
		},
		Individual: models.BucketBalance{
			CurrentValue:          individualValue,
			TargetValue:           targetIndividualValue,
			PercentageOfPortfolio: pct(individualValue),
		},
		Cash: models.BucketBalance{
			CurrentValue:          cashPosition,
			TargetValue:           targetCashValue,
			PercentageOfPortfolio: pct(cashPosition),
		},
		TotalValue:   totalValue,
		CashPosition: cashPosition,
	}
}
