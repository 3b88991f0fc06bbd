// internal/websocket/hub.go
package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"rdm-service/internal/domain/connection"
)

// Hub fans connection lifecycle events out to subscribed dashboard clients.
// Clients only listen; there is no client-to-client traffic.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		logger:     logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("feed client connected",
				zap.Int("user_id", client.userID),
				zap.Int("total", h.TotalClients()))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
			}
			h.mu.Unlock()
			h.logger.Debug("feed client disconnected",
				zap.Int("user_id", client.userID),
				zap.Int("total", h.TotalClients()))

		case msg := <-h.broadcast:
			// Slow clients are dropped inline; routing them through the
			// unregister channel here would block the hub on itself.
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.out <- msg:
				case <-client.done:
					delete(h.clients, client)
				default:
					delete(h.clients, client)
					client.close()
					h.logger.Warn("dropping slow feed client",
						zap.Int("user_id", client.userID))
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastEvent pushes one lifecycle event to every connected client.
// Dropping the event when the hub's buffer is full is acceptable: the feed is
// advisory, the audit trail is the durable record.
func (h *Hub) BroadcastEvent(e *connection.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Error("failed to encode feed event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("feed buffer full, dropping event", zap.String("type", e.Type))
	}
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.close()
	}
	h.clients = make(map[*Client]bool)
}
