package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/atharvakonge/portfolio-rebalancer/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeProcessor_ExecutesWholePlanConcurrently(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	p := seededPortfolio(t, svc, 10000)
	plan, err := svc.CreatePlan(ctx, p.ID, false)
	require.NoError(t, err)

	tp := NewTradeProcessor(5, svc, zerolog.Nop())
	tp.Start()
	defer tp.Stop()

	var wg sync.WaitGroup
	errs := make(chan error, len(plan.Actions))
	for _, a := range plan.Actions {
		wg.Add(1)
		go func(actionID string) {
			defer wg.Done()
			_, err := tp.SubmitTrade(ctx, ExecuteRequest{PortfolioID: p.ID, ActionID: actionID})
			errs <- err
		}(a.ID)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	active, err := svc.ActivePlan(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, active.TotalTrades, active.CompletedTrades)
	assert.False(t, active.IsActive)

	got, err := svc.Overview(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Portfolio.CashPosition)
}

func TestTradeProcessor_SameActionExecutesOnce(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	p := seededPortfolio(t, svc, 10000)
	plan, err := svc.CreatePlan(ctx, p.ID, false)
	require.NoError(t, err)

	tp := NewTradeProcessor(5, svc, zerolog.Nop())
	tp.Start()
	defer tp.Stop()

	const attempts = 10
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := tp.SubmitTrade(ctx, ExecuteRequest{PortfolioID: p.ID, ActionID: plan.Actions[0].ID})
			results <- err
		}()
	}

	succeeded, rejected := 0, 0
	for i := 0; i < attempts; i++ {
		err := <-results
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrActionAlreadyCompleted):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, rejected)

	ledger, err := svc.Transactions(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Len(t, ledger, 1)
}

type blockingExecutor struct {
	release chan struct{}
}

func (b blockingExecutor) ExecuteAction(ctx context.Context, _, _ string) (models.ExecuteResponse, error) {
	select {
	case <-b.release:
		return models.ExecuteResponse{CashDelta: 1}, nil
	case <-ctx.Done():
		return models.ExecuteResponse{}, ctx.Err()
	}
}

func TestTradeProcessor_ContextCancelled(t *testing.T) {
	exec := blockingExecutor{release: make(chan struct{})}
	tp := NewTradeProcessor(1, exec, zerolog.Nop())
	tp.Start()
	defer tp.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tp.SubmitTrade(ctx, ExecuteRequest{PortfolioID: "p", ActionID: "a"})
	assert.ErrorIs(t, err, context.Canceled)
}

// contextBlindExecutor finishes its work whatever happens to the caller's context
type contextBlindExecutor struct {
	started chan struct{}
	release chan struct{}
}

func (c contextBlindExecutor) ExecuteAction(context.Context, string, string) (models.ExecuteResponse, error) {
	close(c.started)
	<-c.release
	return models.ExecuteResponse{CashDelta: -500}, nil
}

func TestTradeProcessor_InFlightResultSurvivesCancel(t *testing.T) {
	exec := contextBlindExecutor{started: make(chan struct{}), release: make(chan struct{})}
	tp := NewTradeProcessor(1, exec, zerolog.Nop())
	tp.Start()
	defer tp.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	type outcome struct {
		resp models.ExecuteResponse
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := tp.SubmitTrade(ctx, ExecuteRequest{PortfolioID: "p", ActionID: "a"})
		done <- outcome{resp, err}
	}()

	<-exec.started
	cancel()
	close(exec.release)

	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, -500.0, got.resp.CashDelta)
}

func TestTradeProcessor_Stopped(t *testing.T) {
	exec := blockingExecutor{release: make(chan struct{})}
	close(exec.release)
	tp := NewTradeProcessor(0, exec, zerolog.Nop())
	tp.Start()

	resp, err := tp.SubmitTrade(context.Background(), ExecuteRequest{PortfolioID: "p", ActionID: "a"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, resp.CashDelta)

	tp.Stop()
	tp.Stop()

	_, err = tp.SubmitTrade(context.Background(), ExecuteRequest{PortfolioID: "p", ActionID: "a"})
	assert.ErrorIs(t, err, ErrProcessorStopped)
}

func BenchmarkTradeProcessing(b *testing.B) {
	exec := blockingExecutor{release: make(chan struct{})}
	close(exec.release)
	tp := NewTradeProcessor(5, exec, zerolog.Nop())
	tp.Start()
	defer tp.Stop()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tp.SubmitTrade(context.Background(), ExecuteRequest{PortfolioID: "p", ActionID: "a"})
		}
	})
}
