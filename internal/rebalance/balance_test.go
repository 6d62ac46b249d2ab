package rebalance

import (
	"testing"

	"github.com/atharvakonge/portfolio-rebalancer/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestComputeBalance_Scenario(t *testing.T) {
	e := newTestEngine()
	holdings := []models.Holding{
		holding("QQQ", 0, 400),
		weighted("A", 0, 100, 50),
		weighted("B", 0, 50, 50),
	}

	b := e.ComputeBalance(holdings, models.Settings{TargetBenchmarkPct: 50, TargetCashPct: 0}, 1000)

	assert.Equal(t, 1000.0, b.TotalValue)
	assert.Equal(t, 1000.0, b.CashPosition)
	assert.Equal(t, 500.0, b.Benchmark.TargetValue)
	assert.Equal(t, 500.0, b.Individual.TargetValue)
	assert.Equal(t, 0.0, b.Cash.TargetValue)
	assert.Equal(t, 1.0, b.Benchmark.ShareChange) // round(500/400)
	assert.Equal(t, 100.0, b.Cash.PercentageOfPortfolio)
}

func TestComputeBalance_TotalValueIsHoldingsPlusCash(t *testing.T) {
	e := newTestEngine()
	tests := []struct {
		name     string
		holdings []models.Holding
		cash     float64
	}{
		{"empty", nil, 0},
		{"cash only", nil, 250},
		{"benchmark and individuals", []models.Holding{holding("QQQ", 3, 400), holding("NVDA", 2, 700), holding("TSLA", 4, 250)}, 125},
		{"invalid rows excluded", []models.Holding{holding("", 5, 10), holding("AAPL", 10, 0), holding("MSFT", 1, 300)}, 0},
		{"lowercase benchmark", []models.Holding{holding("qqq", 2, 400)}, 50},
		{"negative cash", []models.Holding{holding("AMZN", 2, 180)}, -60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := tt.cash
			for _, h := range tt.holdings {
				if IsValid(h) {
					want += h.Shares * h.Price
				}
			}
			b := e.ComputeBalance(tt.holdings, models.Settings{TargetBenchmarkPct: 50, TargetCashPct: 10}, tt.cash)
			assert.Equal(t, want, b.TotalValue)
		})
	}
}

func TestComputeBalance_PercentagesSumToHundred(t *testing.T) {
	e := newTestEngine()
	holdings := []models.Holding{holding("QQQ", 7, 413.27), holding("NVDA", 3, 701.5), holding("TSLA", 11, 248.9)}

	b := e.ComputeBalance(holdings, models.Settings{TargetBenchmarkPct: 40, TargetCashPct: 15}, 1234.56)

	sum := b.Benchmark.PercentageOfPortfolio + b.Individual.PercentageOfPortfolio + b.Cash.PercentageOfPortfolio
	assert.InDelta(t, 100.0, sum, 1e-9)
}

func TestComputeBalance_ZeroTotalGivesZeroPercentages(t *testing.T) {
	e := newTestEngine()

	b := e.ComputeBalance([]models.Holding{holding("QQQ", 0, 400)}, models.Settings{TargetBenchmarkPct: 50}, 0)

	assert.Equal(t, 0.0, b.TotalValue)
	assert.Equal(t, 0.0, b.Benchmark.PercentageOfPortfolio)
	assert.Equal(t, 0.0, b.Individual.PercentageOfPortfolio)
	assert.Equal(t, 0.0, b.Cash.PercentageOfPortfolio)
	assert.Equal(t, 0.0, b.Benchmark.ShareChange)
}

func TestComputeBalance_RecomputesValueFromSharesAndPrice(t *testing.T) {
	e := newTestEngine()
	stale := holding("NVDA", 2, 700)
	stale.Value = 99999

	b := e.ComputeBalance([]models.Holding{stale}, models.Settings{}, 0)

	assert.Equal(t, 1400.0, b.Individual.CurrentValue)
}

func TestComputeBalance_BenchmarkShareChange(t *testing.T) {
	tests := []struct {
		name     string
		shares   float64
		price    float64
		cash     float64
		pct      float64
		expected float64
	}{
		{"buy capped by cash", 0, 400, 1000, 100, 2},   // round(2.5)=3, floor(1000/400)=2
		{"buy within cash", 0, 300, 1000, 100, 3},      // round(3.33)=3
		{"sell is unconstrained", 10, 100, 0, 50, -5},  // (500-1000)/100
		{"negative half rounds up", 5, 100, 0, 50, -2}, // (250-500)/100 = -2.5
		{"no cash means no buy", 0, 400, 0, 50, 0},     // nothing to value
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine()
			b := e.ComputeBalance(
				[]models.Holding{holding("QQQ", tt.shares, tt.price)},
				models.Settings{TargetBenchmarkPct: tt.pct},
				tt.cash,
			)
			assert.Equal(t, tt.expected, b.Benchmark.ShareChange)
		})
	}
}

func TestComputeBalance_NegativeCashNeverTurnsBuyIntoSell(t *testing.T) {
	e := newTestEngine()
	holdings := []models.Holding{holding("QQQ", 0, 100), holding("NVDA", 10, 100)}

	b := e.ComputeBalance(holdings, models.Settings{TargetBenchmarkPct: 100}, -50)

	assert.Equal(t, 950.0, b.TotalValue)
	assert.Equal(t, 0.0, b.Benchmark.ShareChange)
}

func TestComputeBalance_MissingBenchmark(t *testing.T) {
	e := newTestEngine()

	b := e.ComputeBalance([]models.Holding{holding("NVDA", 1, 700)}, models.Settings{TargetBenchmarkPct: 50}, 300)

	assert.Equal(t, 0.0, b.Benchmark.CurrentValue)
	assert.Equal(t, 500.0, b.Benchmark.TargetValue)
	assert.Equal(t, 0.0, b.Benchmark.ShareChange)
}

func TestComputeBalance_OverAllocatedSettingsGoNegative(t *testing.T) {
	e := newTestEngine()

	b := e.ComputeBalance([]models.Holding{holding("NVDA", 1, 1000)}, models.Settings{TargetBenchmarkPct: 80, TargetCashPct: 40}, 0)

	assert.Equal(t, -200.0, b.Individual.TargetValue)
}

func TestComputeBalance_CustomBenchmark(t *testing.T) {
	e := NewEngine(WithBenchmark("VOO"))

	b := e.ComputeBalance([]models.Holding{holding("voo", 2, 450), holding("QQQ", 1, 400)}, models.Settings{TargetBenchmarkPct: 50}, 0)

	assert.Equal(t, 900.0, b.Benchmark.CurrentValue)
	assert.Equal(t, 400.0, b.Individual.CurrentValue)
	assert.Equal(t, "VOO", e.Benchmark())
}
