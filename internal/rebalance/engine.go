// Package rebalance computes how a portfolio split across a benchmark holding,
// individually weighted holdings and a cash reserve moves back toward its
// target allocation, and tracks execution of the resulting trades.
//
// Every operation is a deterministic function of its arguments. Inputs are
// never mutated; updated values are returned instead. Identifiers and
// timestamps come from the IDGenerator and clock the Engine was built with.
package rebalance

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultBenchmarkTicker is the benchmark symbol used when none is configured
	DefaultBenchmarkTicker = "QQQ"

	// NoTickerPlaceholder labels actions for holdings that have no ticker yet
	NoTickerPlaceholder = "(No ticker)"
)

// IDGenerator issues identifiers for actions, plans and transactions
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random UUIDv4 strings
type UUIDGenerator struct{}

// NewID implements IDGenerator
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// Engine holds the injected collaborators of the rebalancing operations.
// It keeps no state between calls and is safe for concurrent use as long
// as its IDGenerator is.
type Engine struct {
	benchmark string
	ids       IDGenerator
	now       func() time.Time
	log       zerolog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithBenchmark sets the benchmark ticker (matched case-insensitively)
func WithBenchmark(ticker string) Option {
	return func(e *Engine) {
		if ticker != "" {
			e.benchmark = ticker
		}
	}
}

// WithIDGenerator replaces the identifier source
func WithIDGenerator(ids IDGenerator) Option {
	return func(e *Engine) {
		if ids != nil {
			e.ids = ids
		}
	}
}

// WithClock replaces the timestamp source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger enables debug output of the cash budget while planning
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = log.With().Str("component", "rebalance").Logger()
	}
}

// NewEngine creates an engine with uuid identifiers and wall-clock timestamps
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		benchmark: DefaultBenchmarkTicker,
		ids:       UUIDGenerator{},
		now:       time.Now,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Benchmark returns the configured benchmark ticker
func (e *Engine) Benchmark() string {
	return e.benchmark
}

// IsBenchmark reports whether ticker designates the benchmark holding
func (e *Engine) IsBenchmark(ticker string) bool {
	return strings.EqualFold(ticker, e.benchmark)
}
