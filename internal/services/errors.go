package services

import "errors"

var (
	ErrPortfolioNotFound       = errors.New("portfolio not found")
	ErrHoldingNotFound         = errors.New("holding not found")
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrInsufficientCash        = errors.New("insufficient cash")
	ErrBenchmarkRequired       = errors.New("the benchmark holding cannot be deleted")
	ErrNoActivePlan            = errors.New("no rebalance plan")
	ErrActivePlanExists        = errors.New("an active rebalance plan already exists")
	ErrActionNotFound          = errors.New("action not found in plan")
	ErrActionAlreadyCompleted  = errors.New("action already completed")
	ErrHoldingForActionMissing = errors.New("no holding matches the action ticker")
	ErrProcessorStopped        = errors.New("trade processor stopped")
)
