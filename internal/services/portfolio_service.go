package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/atharvakonge/portfolio-rebalancer/internal/db"
	"github.com/atharvakonge/portfolio-rebalancer/internal/models"
	"github.com/atharvakonge/portfolio-rebalancer/internal/rebalance"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Publisher receives portfolio events after each successful change
type Publisher interface {
	Publish(event models.PortfolioEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(models.PortfolioEvent) {}

// PortfolioService loads portfolio state, runs the rebalance engine over it
// and writes the results back. Mutations of one portfolio are serialized.
type PortfolioService struct {
	store    db.Store
	engine   *rebalance.Engine
	locks    *models.PortfolioManager
	events   Publisher
	defaults models.Settings
	now      func() time.Time
	log      zerolog.Logger
}

// NewPortfolioService creates the service; events may be nil
func NewPortfolioService(store db.Store, engine *rebalance.Engine, defaults models.Settings, events Publisher, log zerolog.Logger) *PortfolioService {
	if events == nil {
		events = nopPublisher{}
	}
	return &PortfolioService{
		store:    store,
		engine:   engine,
		locks:    models.NewPortfolioManager(),
		events:   events,
		defaults: defaults,
		now:      time.Now,
		log:      log.With().Str("service", "portfolio").Logger(),
	}
}

// DefaultHoldings is the starting allocation of a seeded portfolio
func DefaultHoldings(benchmark string) []models.Holding {
	nvda, tsla := 50.0, 50.0
	return []models.Holding{
		{ID: uuid.NewString(), Ticker: benchmark, Price: 400},
		{ID: uuid.NewString(), Ticker: "NVDA", Price: 700, TargetWeight: &nvda},
		{ID: uuid.NewString(), Ticker: "TSLA", Price: 250, TargetWeight: &tsla},
	}
}

// CreatePortfolio opens a new portfolio
func (s *PortfolioService) CreatePortfolio(ctx context.Context, req models.CreatePortfolioRequest) (models.Portfolio, error) {
	now := s.now()
	p := models.Portfolio{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Holdings:     []models.Holding{},
		Settings:     s.defaults,
		CashPosition: req.CashPosition,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Settings != nil {
		p.Settings = *req.Settings
	}
	if req.Seed {
		p.Holdings = DefaultHoldings(s.engine.Benchmark())
	}

	if err := s.store.CreatePortfolio(ctx, p); err != nil {
		return models.Portfolio{}, fmt.Errorf("create portfolio: %w", err)
	}

	s.log.Info().Str("portfolio_id", p.ID).Str("name", p.Name).Bool("seeded", req.Seed).Msg("Portfolio created")
	return p, nil
}

// Overview returns the portfolio with its balance and the actions that would rebalance it
func (s *PortfolioService) Overview(ctx context.Context, id string) (models.PortfolioResponse, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return models.PortfolioResponse{}, err
	}
	balance := s.engine.ComputeBalance(p.Holdings, p.Settings, p.CashPosition)
	return models.PortfolioResponse{
		Portfolio: p,
		Balance:   balance,
		Actions:   s.engine.ComputeActions(p.Holdings, balance, p.Settings),
	}, nil
}

// UpdateSettings replaces the target allocation
func (s *PortfolioService) UpdateSettings(ctx context.Context, id string, settings models.Settings) (models.Portfolio, error) {
	return s.mutate(ctx, id, func(p *models.Portfolio) error {
		s.log.Info().
			Str("portfolio_id", id).
			Interface("old", p.Settings).
			Interface("new", settings).
			Msg("Settings updated")
		p.Settings = settings
		return nil
	})
}

// AddHolding appends a holding. Opening shares are paid from cash.
func (s *PortfolioService) AddHolding(ctx context.Context, id string, req models.HoldingRequest) (models.Holding, error) {
	h := rebalance.Revalue(models.Holding{
		ID:           uuid.NewString(),
		Ticker:       req.Ticker,
		Shares:       req.Shares,
		Price:        req.Price,
		TargetWeight: req.TargetWeight,
	})
	_, err := s.mutate(ctx, id, func(p *models.Portfolio) error {
		cost := h.Shares * h.Price
		if cost > p.CashPosition {
			return fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientCash, cost, p.CashPosition)
		}
		p.CashPosition -= cost
		p.Holdings = append(p.Holdings, h)
		return nil
	})
	if err != nil {
		return models.Holding{}, err
	}
	return h, nil
}

// UpdateHolding applies a manual edit. A change in shares moves cash by
// -Δshares × price; a purchase the cash position cannot cover keeps the old
// share count but still saves the other fields, and reports ErrInsufficientCash.
func (s *PortfolioService) UpdateHolding(ctx context.Context, id, holdingID string, req models.HoldingRequest) (models.Holding, error) {
	var (
		saved    models.Holding
		shortage error
	)
	_, err := s.mutate(ctx, id, func(p *models.Portfolio) error {
		i := p.FindHolding(holdingID)
		if i < 0 {
			return ErrHoldingNotFound
		}
		original := p.Holdings[i]
		updated := models.Holding{
			ID:           original.ID,
			Ticker:       req.Ticker,
			Shares:       req.Shares,
			Price:        req.Price,
			TargetWeight: req.TargetWeight,
		}

		if change := updated.Shares - original.Shares; change != 0 {
			cashImpact := -change * updated.Price
			if cashImpact > 0 || p.CashPosition >= math.Abs(cashImpact) {
				s.log.Info().
					Str("ticker", updated.Ticker).
					Float64("old_shares", original.Shares).
					Float64("new_shares", updated.Shares).
					Float64("cash_impact", cashImpact).
					Float64("cash", p.CashPosition).
					Msg("Manual share update")
				p.CashPosition = math.Max(0, p.CashPosition+cashImpact)
			} else {
				shortage = fmt.Errorf("%w: buying %v %s needs %.2f, have %.2f",
					ErrInsufficientCash, change, updated.Ticker, math.Abs(cashImpact), p.CashPosition)
				updated.Shares = original.Shares
			}
		}

		saved = rebalance.Revalue(updated)
		p.Holdings[i] = saved
		return nil
	})
	if err != nil {
		return models.Holding{}, err
	}
	return saved, shortage
}

// DeleteHolding removes a holding other than the benchmark
func (s *PortfolioService) DeleteHolding(ctx context.Context, id, holdingID string) error {
	_, err := s.mutate(ctx, id, func(p *models.Portfolio) error {
		i := p.FindHolding(holdingID)
		if i < 0 {
			return ErrHoldingNotFound
		}
		if s.engine.IsBenchmark(p.Holdings[i].Ticker) {
			return ErrBenchmarkRequired
		}
		p.Holdings = append(p.Holdings[:i], p.Holdings[i+1:]...)
		return nil
	})
	return err
}

// Deposit adds cash
func (s *PortfolioService) Deposit(ctx context.Context, id string, amount float64) (models.Portfolio, error) {
	if amount <= 0 {
		return models.Portfolio{}, ErrInvalidAmount
	}
	return s.mutate(ctx, id, func(p *models.Portfolio) error {
		p.CashPosition += amount
		s.log.Info().Str("portfolio_id", id).Float64("amount", amount).Msg("Deposit")
		return nil
	})
}

// Withdraw removes cash, never more than is available
func (s *PortfolioService) Withdraw(ctx context.Context, id string, amount float64) (models.Portfolio, error) {
	if amount <= 0 {
		return models.Portfolio{}, ErrInvalidAmount
	}
	return s.mutate(ctx, id, func(p *models.Portfolio) error {
		if amount > p.CashPosition {
			return fmt.Errorf("%w: cannot withdraw %.2f, have %.2f", ErrInsufficientCash, amount, p.CashPosition)
		}
		p.CashPosition -= amount
		s.log.Info().Str("portfolio_id", id).Float64("amount", amount).Msg("Withdrawal")
		return nil
	})
}

// CreatePlan freezes the current rebalance actions into the active plan.
// An unfinished plan is only discarded when replace is set.
func (s *PortfolioService) CreatePlan(ctx context.Context, id string, replace bool) (models.RebalancePlan, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	p, err := s.load(ctx, id)
	if err != nil {
		return models.RebalancePlan{}, err
	}
	if p.ActivePlan != nil && p.ActivePlan.IsActive && !replace {
		return models.RebalancePlan{}, ErrActivePlanExists
	}

	balance := s.engine.ComputeBalance(p.Holdings, p.Settings, p.CashPosition)
	plan := s.engine.CreatePlan(s.engine.ComputeActions(p.Holdings, balance, p.Settings))
	p.ActivePlan = &plan
	p.UpdatedAt = s.now()

	if err := s.store.SavePortfolio(ctx, p); err != nil {
		return models.RebalancePlan{}, fmt.Errorf("save plan: %w", err)
	}

	s.log.Info().Str("portfolio_id", id).Str("plan_id", plan.ID).Int("trades", plan.TotalTrades).Msg("Rebalance plan created")
	s.events.Publish(models.PortfolioEvent{
		Type:         models.EventPlanCreated,
		PortfolioID:  id,
		CashPosition: p.CashPosition,
		Plan:         &plan,
		Timestamp:    p.UpdatedAt,
	})
	return plan, nil
}

// ActivePlan returns the current plan, finished or not
func (s *PortfolioService) ActivePlan(ctx context.Context, id string) (models.RebalancePlan, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return models.RebalancePlan{}, err
	}
	if p.ActivePlan == nil {
		return models.RebalancePlan{}, ErrNoActivePlan
	}
	return *p.ActivePlan, nil
}

// ExecuteAction trades one action of the active plan, records the
// transaction and advances the plan. Each action executes at most once.
func (s *PortfolioService) ExecuteAction(ctx context.Context, id, actionID string) (models.ExecuteResponse, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	p, err := s.load(ctx, id)
	if err != nil {
		return models.ExecuteResponse{}, err
	}
	if p.ActivePlan == nil {
		return models.ExecuteResponse{}, ErrNoActivePlan
	}
	plan := *p.ActivePlan

	action, ok := plan.FindAction(actionID)
	if !ok {
		return models.ExecuteResponse{}, ErrActionNotFound
	}
	if action.Status == models.StatusCompleted {
		return models.ExecuteResponse{}, ErrActionAlreadyCompleted
	}

	idx := -1
	for i, h := range p.Holdings {
		if h.Ticker == action.Ticker {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.ExecuteResponse{}, fmt.Errorf("%w: %s", ErrHoldingForActionMissing, action.Ticker)
	}

	res, err := s.engine.Execute(action, p.Holdings[idx], plan.ID)
	if err != nil {
		return models.ExecuteResponse{}, err
	}

	oldCash := p.CashPosition
	p.Holdings[idx] = res.UpdatedHolding
	p.CashPosition = math.Max(0, p.CashPosition+res.CashDelta)
	updated := rebalance.MarkCompleted(plan, res.UpdatedAction.ID)
	p.ActivePlan = &updated
	p.UpdatedAt = s.now()

	if err := s.store.RecordTrade(ctx, p, res.Transaction); err != nil {
		return models.ExecuteResponse{}, fmt.Errorf("record trade: %w", err)
	}

	s.log.Info().
		Str("portfolio_id", id).
		Str("plan_id", plan.ID).
		Str("direction", string(res.Transaction.Direction)).
		Str("ticker", res.Transaction.Ticker).
		Float64("shares", res.Transaction.Shares).
		Float64("price", res.Transaction.Price).
		Float64("cash_delta", res.CashDelta).
		Float64("old_cash", oldCash).
		Float64("new_cash", p.CashPosition).
		Int("completed", updated.CompletedTrades).
		Int("total", updated.TotalTrades).
		Msg("Trade executed")

	tx := res.Transaction
	s.events.Publish(models.PortfolioEvent{
		Type:         models.EventTradeExecuted,
		PortfolioID:  id,
		CashPosition: p.CashPosition,
		Plan:         &updated,
		Transaction:  &tx,
		Timestamp:    p.UpdatedAt,
	})

	return models.ExecuteResponse{
		Transaction:  res.Transaction,
		Holding:      res.UpdatedHolding,
		Plan:         updated,
		CashDelta:    res.CashDelta,
		CashPosition: p.CashPosition,
	}, nil
}

// Transactions returns the ledger newest first
func (s *PortfolioService) Transactions(ctx context.Context, id string, limit int) ([]models.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, id, limit)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrPortfolioNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// mutate runs fn on a locked, freshly loaded copy of the portfolio and saves it
func (s *PortfolioService) mutate(ctx context.Context, id string, fn func(p *models.Portfolio) error) (models.Portfolio, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	p, err := s.load(ctx, id)
	if err != nil {
		return models.Portfolio{}, err
	}
	if err := fn(&p); err != nil {
		return models.Portfolio{}, err
	}
	p.UpdatedAt = s.now()

	if err := s.store.SavePortfolio(ctx, p); err != nil {
		return models.Portfolio{}, fmt.Errorf("save portfolio %s: %w", id, err)
	}

	s.events.Publish(models.PortfolioEvent{
		Type:         models.EventPortfolioUpdated,
		PortfolioID:  id,
		CashPosition: p.CashPosition,
		Timestamp:    p.UpdatedAt,
	})
	return p, nil
}

// load reads a portfolio, fixing up derived values and missing holding ids
func (s *PortfolioService) load(ctx context.Context, id string) (models.Portfolio, error) {
	p, err := s.store.GetPortfolio(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return models.Portfolio{}, ErrPortfolioNotFound
	}
	if err != nil {
		return models.Portfolio{}, fmt.Errorf("load portfolio %s: %w", id, err)
	}
	for i := range p.Holdings {
		if p.Holdings[i].ID == "" {
			p.Holdings[i].ID = uuid.NewString()
		}
		p.Holdings[i] = rebalance.Revalue(p.Holdings[i])
	}
	return p, nil
}
