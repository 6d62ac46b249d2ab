package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/atharvakonge/portfolio-rebalancer/internal/models"
	"github.com/rs/zerolog"
)

// ActionExecutor executes one plan action
type ActionExecutor interface {
	ExecuteAction(ctx context.Context, portfolioID, actionID string) (models.ExecuteResponse, error)
}

// ExecuteRequest names the plan action to execute
type ExecuteRequest struct {
	PortfolioID string
	ActionID    string
}

// TradeResult represents result of a trade operation
type TradeResult struct {
	Response models.ExecuteResponse
	Err      error
}

const (
	jobQueued int32 = iota
	jobClaimed
	jobAbandoned
)

// tradeJob represents a trade to be processed
type tradeJob struct {
	ctx      context.Context
	req      ExecuteRequest
	resultCh chan TradeResult // Channel to send result back
	state    *atomic.Int32    // jobQueued until a worker claims it or the caller gives up
}

// TradeProcessor runs plan executions on a fixed pool of workers.
// Ordering per portfolio is left to the executor's locking.
type TradeProcessor struct {
	workers  int
	queue    chan tradeJob
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	executor ActionExecutor
	log      zerolog.Logger
}

// NewTradeProcessor creates a new trade processor with worker pool
func NewTradeProcessor(workers int, executor ActionExecutor, log zerolog.Logger) *TradeProcessor {
	if workers < 1 {
		workers = 1
	}
	return &TradeProcessor{
		workers:  workers,
		queue:    make(chan tradeJob, 100), // Buffer of 100 trades
		stopCh:   make(chan struct{}),
		executor: executor,
		log:      log.With().Str("component", "trade_processor").Logger(),
	}
}

// Start starts the worker pool
func (tp *TradeProcessor) Start() {
	for i := 0; i < tp.workers; i++ {
		tp.wg.Add(1)
		go tp.worker(i)
	}
	tp.log.Info().Int("workers", tp.workers).Msg("Started trade workers")
}

// Stop gracefully stops all workers
func (tp *TradeProcessor) Stop() {
	tp.stopOnce.Do(func() {
		close(tp.stopCh)
	})
	tp.wg.Wait()
	tp.log.Info().Msg("Trade processor stopped")
}

// worker processes trades from the queue
func (tp *TradeProcessor) worker(id int) {
	defer tp.wg.Done()

	log := tp.log.With().Int("worker", id).Logger()
	log.Debug().Msg("Worker started")

	for {
		select {
		case <-tp.stopCh:
			log.Debug().Msg("Worker stopping")
			return

		case job := <-tp.queue:
			if !job.state.CompareAndSwap(jobQueued, jobClaimed) {
				continue
			}
			if err := job.ctx.Err(); err != nil {
				job.resultCh <- TradeResult{Err: err}
				continue
			}

			log.Debug().
				Str("portfolio_id", job.req.PortfolioID).
				Str("action_id", job.req.ActionID).
				Msg("Processing trade")

			resp, err := tp.executor.ExecuteAction(job.ctx, job.req.PortfolioID, job.req.ActionID)
			job.resultCh <- TradeResult{Response: resp, Err: err}
		}
	}
}

// SubmitTrade queues an execution and waits for its result.
// Once a worker has picked the job up, its outcome is always returned,
// even if ctx ends or the processor stops meanwhile.
func (tp *TradeProcessor) SubmitTrade(ctx context.Context, req ExecuteRequest) (models.ExecuteResponse, error) {
	job := tradeJob{ctx: ctx, req: req, resultCh: make(chan TradeResult, 1), state: new(atomic.Int32)}

	select {
	case tp.queue <- job:
	case <-tp.stopCh:
		return models.ExecuteResponse{}, ErrProcessorStopped
	case <-ctx.Done():
		return models.ExecuteResponse{}, ctx.Err()
	}

	var abandonErr error
	select {
	case result := <-job.resultCh:
		return result.Response, result.Err
	case <-tp.stopCh:
		abandonErr = ErrProcessorStopped
	case <-ctx.Done():
		abandonErr = ctx.Err()
	}

	if job.state.CompareAndSwap(jobQueued, jobAbandoned) {
		return models.ExecuteResponse{}, abandonErr
	}
	result := <-job.resultCh
	return result.Response, result.Err
}
