package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/atharvakonge/portfolio-rebalancer/internal/models"
	"github.com/atharvakonge/portfolio-rebalancer/internal/rebalance"
	"github.com/atharvakonge/portfolio-rebalancer/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const defaultHistoryLimit = 50

// Handler serves the portfolio API
type Handler struct {
	portfolios *services.PortfolioService
	trades     *services.TradeProcessor
	hub        *Hub
	log        zerolog.Logger
}

// New creates the API handler
func New(portfolios *services.PortfolioService, trades *services.TradeProcessor, hub *Hub, log zerolog.Logger) *Handler {
	return &Handler{
		portfolios: portfolios,
		trades:     trades,
		hub:        hub,
		log:        log.With().Str("component", "http").Logger(),
	}
}

// RegisterRoutes mounts every endpoint on router
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/portfolios", h.CreatePortfolio)
		api.GET("/portfolios/:id", h.GetPortfolio)
		api.PUT("/portfolios/:id/settings", h.UpdateSettings)

		api.POST("/portfolios/:id/holdings", h.AddHolding)
		api.PUT("/portfolios/:id/holdings/:holdingId", h.UpdateHolding)
		api.DELETE("/portfolios/:id/holdings/:holdingId", h.DeleteHolding)

		api.POST("/portfolios/:id/cash/deposit", h.Deposit)
		api.POST("/portfolios/:id/cash/withdraw", h.Withdraw)

		api.POST("/portfolios/:id/plans", h.CreatePlan)
		api.GET("/portfolios/:id/plan", h.GetPlan)
		api.POST("/portfolios/:id/plan/actions/:actionId/execute", h.ExecuteAction)

		api.GET("/portfolios/:id/transactions", h.GetTransactionHistory)
	}

	router.GET("/ws/portfolios/:id", h.Subscribe)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
}

// CreatePortfolio handles POST /api/portfolios
func (h *Handler) CreatePortfolio(c *gin.Context) {
	var req models.CreatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.portfolios.CreatePortfolio(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GetPortfolio handles GET /api/portfolios/:id
func (h *Handler) GetPortfolio(c *gin.Context) {
	overview, err := h.portfolios.Overview(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// UpdateSettings handles PUT /api/portfolios/:id/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req models.SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.portfolios.UpdateSettings(c.Request.Context(), c.Param("id"), models.Settings{
		TargetBenchmarkPct: req.TargetBenchmarkPct,
		TargetCashPct:      req.TargetCashPct,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p.Settings)
}

// AddHolding handles POST /api/portfolios/:id/holdings
func (h *Handler) AddHolding(c *gin.Context) {
	var req models.HoldingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	holding, err := h.portfolios.AddHolding(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, holding)
}

// UpdateHolding handles PUT /api/portfolios/:id/holdings/:holdingId
func (h *Handler) UpdateHolding(c *gin.Context) {
	var req models.HoldingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	holding, err := h.portfolios.UpdateHolding(c.Request.Context(), c.Param("id"), c.Param("holdingId"), req)
	if errors.Is(err, services.ErrInsufficientCash) {
		// The edit was saved with the previous share count.
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "holding": holding})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, holding)
}

// DeleteHolding handles DELETE /api/portfolios/:id/holdings/:holdingId
func (h *Handler) DeleteHolding(c *gin.Context) {
	if err := h.portfolios.DeleteHolding(c.Request.Context(), c.Param("id"), c.Param("holdingId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Deposit handles POST /api/portfolios/:id/cash/deposit
func (h *Handler) Deposit(c *gin.Context) {
	h.moveCash(c, h.portfolios.Deposit)
}

// Withdraw handles POST /api/portfolios/:id/cash/withdraw
func (h *Handler) Withdraw(c *gin.Context) {
	h.moveCash(c, h.portfolios.Withdraw)
}

func (h *Handler) moveCash(c *gin.Context, move func(ctx context.Context, id string, amount float64) (models.Portfolio, error)) {
	var req models.CashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := move(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cash_position": p.CashPosition})
}

// CreatePlan handles POST /api/portfolios/:id/plans
func (h *Handler) CreatePlan(c *gin.Context) {
	var req models.CreatePlanRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	plan, err := h.portfolios.CreatePlan(c.Request.Context(), c.Param("id"), req.Replace)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// GetPlan handles GET /api/portfolios/:id/plan
func (h *Handler) GetPlan(c *gin.Context) {
	plan, err := h.portfolios.ActivePlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// ExecuteAction handles POST /api/portfolios/:id/plan/actions/:actionId/execute
func (h *Handler) ExecuteAction(c *gin.Context) {
	resp, err := h.trades.SubmitTrade(c.Request.Context(), services.ExecuteRequest{
		PortfolioID: c.Param("id"),
		ActionID:    c.Param("actionId"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetTransactionHistory handles GET /api/portfolios/:id/transactions
func (h *Handler) GetTransactionHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	txs, err := h.portfolios.Transactions(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transactions": txs,
		"count":        len(txs),
	})
}

// Subscribe handles GET /ws/portfolios/:id
func (h *Handler) Subscribe(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.portfolios.Overview(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	h.hub.Serve(c.Writer, c.Request, id)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrPortfolioNotFound),
		errors.Is(err, services.ErrHoldingNotFound),
		errors.Is(err, services.ErrNoActivePlan),
		errors.Is(err, services.ErrActionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInsufficientCash),
		errors.Is(err, services.ErrBenchmarkRequired),
		errors.Is(err, services.ErrHoldingForActionMissing),
		errors.Is(err, rebalance.ErrInvalidActionDirection):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrActivePlanExists),
		errors.Is(err, services.ErrActionAlreadyCompleted):
		status = http.StatusConflict
	case errors.Is(err, services.ErrProcessorStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
