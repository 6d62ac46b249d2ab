package models

import "time"

// Direction is the side of a rebalance action or transaction
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
	DirectionNone Direction = "none"
)

// TradeStatus tracks whether a planned action has been executed
type TradeStatus string

const (
	StatusPending   TradeStatus = "pending"
	StatusCompleted TradeStatus = "completed"
)

// RebalanceAction is one planned trade for a single holding
type RebalanceAction struct {
	ID            string      `json:"id"`
	Ticker        string      `json:"ticker"`
	CurrentShares float64     `json:"current_shares"`
	TargetShares  float64     `json:"target_shares"`
	SharesToTrade float64     `json:"shares_to_trade"`
	Direction     Direction   `json:"direction"`
	Status        TradeStatus `json:"status"`
}

// RebalancePlan is an ordered set of trades being worked through
type RebalancePlan struct {
	ID              string            `json:"id"`
	CreatedAt       time.Time         `json:"created_at"`
	Actions         []RebalanceAction `json:"actions"`
	IsActive        bool              `json:"is_active"`
	CompletedTrades int               `json:"completed_trades"`
	TotalTrades     int               `json:"total_trades"`
}

// Clone copies the plan including its action slice
func (p RebalancePlan) Clone() RebalancePlan {
	out := p
	out.Actions = append([]RebalanceAction(nil), p.Actions...)
	return out
}

// FindAction returns the action with the given id
func (p RebalancePlan) FindAction(id string) (RebalanceAction, bool) {
	for _, a := range p.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return RebalanceAction{}, false
}

// Transaction is an append-only ledger entry for an executed action
type Transaction struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	Ticker          string    `json:"ticker"`
	Direction       Direction `json:"direction"` // "buy" or "sell"
	Shares          float64   `json:"shares"`
	Price           float64   `json:"price"`
	RebalancePlanID string    `json:"rebalance_plan_id"`
}

// CreatePortfolioRequest - what client sends to open a portfolio
type CreatePortfolioRequest struct {
	Name         string    `json:"name" binding:"required"`
	Seed         bool      `json:"seed"` // Start with the default benchmark + two holdings
	CashPosition float64   `json:"cash_position" binding:"min=0"`
	Settings     *Settings `json:"settings"`
}

// HoldingRequest - payload for adding or editing a holding
type HoldingRequest struct {
	Ticker       string   `json:"ticker"`
	Shares       float64  `json:"shares" binding:"min=0"`
	Price        float64  `json:"price" binding:"min=0"`
	TargetWeight *float64 `json:"target_weight" binding:"omitempty,min=0"`
}

// CashRequest - deposit or withdraw amount
type CashRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// SettingsRequest - new target allocation
type SettingsRequest struct {
	TargetBenchmarkPct float64 `json:"target_benchmark_pct" binding:"min=0,max=100"`
	TargetCashPct      float64 `json:"target_cash_pct" binding:"min=0,max=100"`
}

// CreatePlanRequest - replace must be set to discard an active plan
type CreatePlanRequest struct {
	Replace bool `json:"replace"`
}

// PortfolioResponse - what we send back to client
type PortfolioResponse struct {
	Portfolio Portfolio         `json:"portfolio"`
	Balance   Balance           `json:"balance"`
	Actions   []RebalanceAction `json:"actions"`
}

// ExecuteResponse - result of executing one plan action
type ExecuteResponse struct {
	Transaction  Transaction   `json:"transaction"`
	Holding      Holding       `json:"holding"`
	Plan         RebalancePlan `json:"plan"`
	CashDelta    float64       `json:"cash_delta"`
	CashPosition float64       `json:"cash_position"`
}

// Portfolio event types pushed to websocket subscribers
const (
	EventPortfolioUpdated = "portfolio_updated"
	EventPlanCreated      = "plan_created"
	EventTradeExecuted    = "trade_executed"
)

// PortfolioEvent describes a change to a portfolio
type PortfolioEvent struct {
	Type         string         `json:"type"`
	PortfolioID  string         `json:"portfolio_id"`
	CashPosition float64        `json:"cash_position"`
	Plan         *RebalancePlan `json:"plan,omitempty"`
	Transaction  *Transaction   `json:"transaction,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}
