package models

import "time"

// Holding represents a position held in a portfolio
type Holding struct {
	ID           string   `json:"id"`
	Ticker       string   `json:"ticker"`
	Shares       float64  `json:"shares"`
	Price        float64  `json:"price"`
	Value        float64  `json:"value"`
	TargetWeight *float64 `json:"target_weight,omitempty"` // Relative weight inside the individual bucket
}

// Weight returns the target weight, or 0 when none is set
func (h Holding) Weight() float64 {
	if h.TargetWeight == nil {
		return 0
	}
	return *h.TargetWeight
}

// Settings holds the target allocation of a portfolio.
// The individual holdings bucket receives 100 - TargetBenchmarkPct - TargetCashPct.
type Settings struct {
	TargetBenchmarkPct float64 `json:"target_benchmark_pct"`
	TargetCashPct      float64 `json:"target_cash_pct"`
}

// BucketBalance is the current and target state of one allocation bucket
type BucketBalance struct {
	CurrentValue          float64 `json:"current_value"`
	TargetValue           float64 `json:"target_value"`
	PercentageOfPortfolio float64 `json:"percentage_of_portfolio"`
}

// BenchmarkBalance adds the advisory share delta to the benchmark bucket
type BenchmarkBalance struct {
	BucketBalance
	ShareChange float64 `json:"share_change"`
}

// Balance is a snapshot of the three allocation buckets
type Balance struct {
	Benchmark    BenchmarkBalance `json:"benchmark"`
	Individual   BucketBalance    `json:"individual"`
	Cash         BucketBalance    `json:"cash"`
	TotalValue   float64          `json:"total_value"`
	CashPosition float64          `json:"cash_position"`
}

// Portfolio is the state a caller persists between engine calls
type Portfolio struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Holdings     []Holding      `json:"holdings"`
	Settings     Settings       `json:"settings"`
	CashPosition float64        `json:"cash_position"`
	ActivePlan   *RebalancePlan `json:"active_plan,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// FindHolding returns the index of the holding with the given id, or -1
func (p Portfolio) FindHolding(id string) int {
	for i, h := range p.Holdings {
		if h.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can modify it freely
func (p Portfolio) Clone() Portfolio {
	out := p
	out.Holdings = make([]Holding, len(p.Holdings))
	for i, h := range p.Holdings {
		if h.TargetWeight != nil {
			w := *h.TargetWeight
			h.TargetWeight = &w
		}
		out.Holdings[i] = h
	}
	if p.ActivePlan != nil {
		plan := p.ActivePlan.Clone()
		out.ActivePlan = &plan
	}
	return out
}
