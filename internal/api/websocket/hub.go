package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/KevinKickass/ioplusd/internal/auth"
	"go.uber.org/zap"
)

// TokenValidator checks the token of the auth message
type TokenValidator interface {
	ValidateToken(token string) (*auth.JWTClaims, error)
}

// StatusProvider supplies the system status sent to new clients
type StatusProvider interface {
	GetStatus() any
}

// Hub maintains active WebSocket clients and broadcasts messages
type Hub struct {
	// Authenticated clients
	clients map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// closed when Run returns
	done chan struct{}

	mu sync.RWMutex

	logger *zap.Logger

	validator TokenValidator

	// optional
	statusProvider StatusProvider
}

// NewHub creates a new Hub instance
func NewHub(logger *zap.Logger, validator TokenValidator) *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		logger:     logger,
		validator:  validator,
	}
}

func (h *Hub) SetStatusProvider(provider StatusProvider) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statusProvider = provider
}

func (h *Hub) status() any {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.statusProvider == nil {
		return nil
	}
	return h.statusProvider.GetStatus()
}

// Run starts the hub's main event loop. It returns when ctx is done, closing
// every client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket Hub started")
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			close(h.done)
			h.logger.Info("WebSocket Hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("WebSocket client registered",
				zap.String("remote_addr", client.remoteAddr()),
				zap.Int("total_clients", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info("WebSocket client unregistered",
					zap.String("remote_addr", client.remoteAddr()),
					zap.Int("total_clients", len(h.clients)))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// slow or dead client
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("Client send buffer full, unregistering",
						zap.String("remote_addr", client.remoteAddr()))
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) registerClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Hub broadcast channel full, message dropped",
			zap.String("message_type", string(msg.Type)))
	}
}

// BroadcastUnitUpdate publishes a changed unit value.
func (h *Hub) BroadcastUnitUpdate(board string, unit, nValue int, sValue string) {
	h.Broadcast(NewUnitUpdateMessage(board, unit, nValue, sValue))
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
