package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atharvakonge/portfolio-rebalancer/internal/config"
	"github.com/atharvakonge/portfolio-rebalancer/internal/db"
	"github.com/atharvakonge/portfolio-rebalancer/internal/handlers"
	"github.com/atharvakonge/portfolio-rebalancer/internal/rebalance"
	"github.com/atharvakonge/portfolio-rebalancer/internal/services"
	"github.com/atharvakonge/portfolio-rebalancer/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Config{Pretty: true})
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	if !cfg.EnvFileLoaded {
		log.Info().Msg("No .env file found, using defaults or environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	engine := rebalance.NewEngine(
		rebalance.WithBenchmark(cfg.BenchmarkTicker),
		rebalance.WithLogger(log),
	)
	hub := handlers.NewHub(log)
	portfolios := services.NewPortfolioService(store, engine, cfg.DefaultSettings, hub, log)

	tradeProcessor := services.NewTradeProcessor(cfg.NumWorkers, portfolios, log)
	tradeProcessor.Start()
	defer tradeProcessor.Stop()

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), handlers.RequestLogger(log))
	handlers.New(portfolios, tradeProcessor, hub, log).RegisterRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("store", cfg.Store).
			Str("benchmark", engine.Benchmark()).
			Int("workers", cfg.NumWorkers).
			Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (db.Store, error) {
	if cfg.Store == config.StoreMemory {
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return db.NewMemoryStore(), nil
	}

	store, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	log.Info().Str("host", cfg.Database.Host).Str("database", cfg.Database.Name).Msg("Connected to PostgreSQL")
	return store, nil
}
