package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atharvakonge/portfolio-rebalancer/internal/models"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog"
)

// Config holds PostgreSQL connection settings
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the lib/pq connection string
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, sslMode,
	)
}

const schema = `
CREATE TABLE IF NOT EXISTS portfolios (
    id                   TEXT PRIMARY KEY,
    name                 TEXT NOT NULL,
    cash_position        DOUBLE PRECISION NOT NULL DEFAULT 0,
    target_benchmark_pct DOUBLE PRECISION NOT NULL,
    target_cash_pct      DOUBLE PRECISION NOT NULL,
    active_plan          JSONB,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS holdings (
    id            TEXT PRIMARY KEY,
    portfolio_id  TEXT NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
    position      INT NOT NULL,
    ticker        TEXT NOT NULL,
    shares        DOUBLE PRECISION NOT NULL,
    price         DOUBLE PRECISION NOT NULL,
    target_weight DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS rebalance_transactions (
    id                TEXT PRIMARY KEY,
    portfolio_id      TEXT NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
    rebalance_plan_id TEXT NOT NULL,
    ticker            TEXT NOT NULL,
    direction         TEXT NOT NULL CHECK (direction IN ('buy', 'sell')),
    shares            DOUBLE PRECISION NOT NULL,
    price             DOUBLE PRECISION NOT NULL,
    total_amount      DOUBLE PRECISION NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rebalance_transactions_portfolio
    ON rebalance_transactions (portfolio_id, created_at DESC);
`

// PostgresStore persists portfolios in PostgreSQL
type PostgresStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open connects to PostgreSQL and creates the schema if needed
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (*PostgresStore, error) {
	return OpenDSN(ctx, cfg.DSN(), log)
}

// OpenDSN is Open with a ready-made connection string
func OpenDSN(ctx context.Context, dsn string, log zerolog.Logger) (*PostgresStore, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &PostgresStore{db: conn, log: log.With().Str("component", "postgres").Logger()}
	if err := s.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	s.log.Info().Msg("Database connected")
	return s, nil
}

// Migrate creates missing tables
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("error creating schema: %w", err)
	}
	return nil
}

// DB exposes the underlying pool
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.log.Info().Msg("Database connection closed")
	return err
}

func (s *PostgresStore) CreatePortfolio(ctx context.Context, p models.Portfolio) error {
	plan, err := encodePlan(p.ActivePlan)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO portfolios (id, name, cash_position, target_benchmark_pct, target_cash_pct, active_plan, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, p.ID, p.Name, p.CashPosition, p.Settings.TargetBenchmarkPct, p.Settings.TargetCashPct, plan, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert portfolio %s: %w", p.ID, err)
	}

	if err := writeHoldings(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) GetPortfolio(ctx context.Context, id string) (models.Portfolio, error) {
	var (
		p    models.Portfolio
		plan []byte
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT id, name, cash_position, target_benchmark_pct, target_cash_pct, active_plan, created_at, updated_at
        FROM portfolios
        WHERE id = $1
    `, id).Scan(&p.ID, &p.Name, &p.CashPosition, &p.Settings.TargetBenchmarkPct, &p.Settings.TargetCashPct, &plan, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Portfolio{}, ErrNotFound
	}
	if err != nil {
		return models.Portfolio{}, fmt.Errorf("select portfolio %s: %w", id, err)
	}

	if len(plan) > 0 {
		var active models.RebalancePlan
		if err := json.Unmarshal(plan, &active); err != nil {
			return models.Portfolio{}, fmt.Errorf("decode plan of %s: %w", id, err)
		}
		p.ActivePlan = &active
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT id, ticker, shares, price, target_weight
        FROM holdings
        WHERE portfolio_id = $1
        ORDER BY position
    `, id)
	if err != nil {
		return models.Portfolio{}, fmt.Errorf("select holdings of %s: %w", id, err)
	}
	defer rows.Close()

	p.Holdings = make([]models.Holding, 0)
	for rows.Next() {
		var (
			h      models.Holding
			weight sql.NullFloat64
		)
		if err := rows.Scan(&h.ID, &h.Ticker, &h.Shares, &h.Price, &weight); err != nil {
			return models.Portfolio{}, fmt.Errorf("scan holding: %w", err)
		}
		if weight.Valid {
			w := weight.Float64
			h.TargetWeight = &w
		}
		h.Value = h.Shares * h.Price
		p.Holdings = append(p.Holdings, h)
	}
	if err := rows.Err(); err != nil {
		return models.Portfolio{}, fmt.Errorf("read holdings of %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) SavePortfolio(ctx context.Context, p models.Portfolio) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := updatePortfolio(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordTrade writes the portfolio and the ledger entry all or nothing
func (s *PostgresStore) RecordTrade(ctx context.Context, p models.Portfolio, t models.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := updatePortfolio(ctx, tx, p); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO rebalance_transactions (id, portfolio_id, rebalance_plan_id, ticker, direction, shares, price, total_amount, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, t.ID, p.ID, t.RebalancePlanID, t.Ticker, string(t.Direction), t.Shares, t.Price, t.Shares*t.Price, t.Timestamp)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", t.ID, err)
	}

	return tx.Commit()
}

func (s *PostgresStore) ListTransactions(ctx context.Context, portfolioID string, limit int) ([]models.Transaction, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM portfolios WHERE id = $1)", portfolioID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check portfolio %s: %w", portfolioID, err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	query := `
        SELECT id, rebalance_plan_id, ticker, direction, shares, price, created_at
        FROM rebalance_transactions
        WHERE portfolio_id = $1
        ORDER BY created_at DESC`
	args := []any{portfolioID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select transactions of %s: %w", portfolioID, err)
	}
	defer rows.Close()

	out := make([]models.Transaction, 0)
	for rows.Next() {
		var (
			t         models.Transaction
			direction string
		)
		if err := rows.Scan(&t.ID, &t.RebalancePlanID, &t.Ticker, &direction, &t.Shares, &t.Price, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Direction = models.Direction(direction)
		out = append(out, t)
	}
	return out, rows.Err()
}

func updatePortfolio(ctx context.Context, tx *sql.Tx, p models.Portfolio) error {
	plan, err := encodePlan(p.ActivePlan)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
        UPDATE portfolios
        SET name = $2, cash_position = $3, target_benchmark_pct = $4, target_cash_pct = $5,
            active_plan = $6, updated_at = $7
        WHERE id = $1
    `, p.ID, p.Name, p.CashPosition, p.Settings.TargetBenchmarkPct, p.Settings.TargetCashPct, plan, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update portfolio %s: %w", p.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM holdings WHERE portfolio_id = $1", p.ID); err != nil {
		return fmt.Errorf("clear holdings of %s: %w", p.ID, err)
	}
	return writeHoldings(ctx, tx, p)
}

func writeHoldings(ctx context.Context, tx *sql.Tx, p models.Portfolio) error {
	for i, h := range p.Holdings {
		var weight sql.NullFloat64
		if h.TargetWeight != nil {
			weight = sql.NullFloat64{Float64: *h.TargetWeight, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
            INSERT INTO holdings (id, portfolio_id, position, ticker, shares, price, target_weight)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
        `, h.ID, p.ID, i, h.Ticker, h.Shares, h.Price, weight)
		if err != nil {
			return fmt.Errorf("insert holding %s: %w", h.ID, err)
		}
	}
	return nil
}

func encodePlan(plan *models.RebalancePlan) (any, error) {
	if plan == nil {
		return nil, nil
	}
	b, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("encode plan %s: %w", plan.ID, err)
	}
	return string(b), nil
}
