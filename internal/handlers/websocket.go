package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/atharvakonge/portfolio-rebalancer/internal/models"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins (for development and demo)
	},
}

type subscriber struct {
	send chan models.PortfolioEvent
}

// Hub fans portfolio events out to websocket subscribers of that portfolio
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscriber]struct{} // portfolio id → subscribers
	log         zerolog.Logger
}

// NewHub creates an empty hub
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[*subscriber]struct{}),
		log:         log.With().Str("component", "websocket").Logger(),
	}
}

// Publish implements services.Publisher. Slow subscribers miss events
// rather than blocking the caller.
func (h *Hub) Publish(event models.PortfolioEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers[event.PortfolioID] {
		select {
		case sub.send <- event:
		default:
			h.log.Warn().Str("portfolio_id", event.PortfolioID).Str("type", event.Type).Msg("Dropped event for slow subscriber")
		}
	}
}

// Subscribers returns the number of open connections for a portfolio
func (h *Hub) Subscribers(portfolioID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[portfolioID])
}

// Serve upgrades the request and streams events until the client goes away
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, portfolioID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	sub := &subscriber{send: make(chan models.PortfolioEvent, sendBuffer)}
	h.add(portfolioID, sub)
	defer h.remove(portfolioID, sub)

	h.log.Info().Str("portfolio_id", portfolioID).Msg("Client connected to WebSocket")

	// Reads only detect the peer closing; clients send nothing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			h.log.Info().Str("portfolio_id", portfolioID).Msg("Client disconnected")
			return

		case event := <-sub.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				h.log.Warn().Err(err).Msg("WebSocket write error")
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) add(portfolioID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[portfolioID] == nil {
		h.subscribers[portfolioID] = make(map[*subscriber]struct{})
	}
	h.subscribers[portfolioID][sub] = struct{}{}
}

func (h *Hub) remove(portfolioID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers[portfolioID], sub)
	if len(h.subscribers[portfolioID]) == 0 {
		delete(h.subscribers, portfolioID)
	}
}
