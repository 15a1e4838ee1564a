package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/KevinKickass/ioplusd/internal/auth"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Time allowed for the auth message
	authWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Send channel buffer size
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client represents a WebSocket client connection
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	logger        *zap.Logger
	authenticated bool
	username      string
	permissions   []auth.Permission
}

func (c *Client) remoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// readPump handles reading messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		if c.authenticated {
			c.hub.unregisterClient(c)
		} else {
			close(c.send)
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(authWait))

	for {
		var msg map[string]interface{}
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error",
					zap.Error(err),
					zap.String("remote_addr", c.remoteAddr()))
			}
			return
		}

		// First message MUST be authentication
		if !c.authenticated {
			if !c.authenticate(msg) {
				return
			}
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) authenticate(msg map[string]interface{}) bool {
	if msgType, ok := msg["type"].(string); !ok || msgType != "auth" {
		c.sendAuthFailed("First message must be authentication")
		return false
	}

	token, ok := msg["token"].(string)
	if !ok || token == "" {
		c.sendAuthFailed("Missing token in auth message")
		return false
	}

	claims, err := c.hub.validator.ValidateToken(token)
	if err != nil {
		c.logger.Warn("WebSocket authentication failed",
			zap.Error(err),
			zap.String("remote_addr", c.remoteAddr()))
		c.sendAuthFailed("Invalid or expired token")
		return false
	}

	c.authenticated = true
	c.username = claims.Username
	c.permissions = auth.RoleToPermissions(claims.Role)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c.send <- c.encode(NewMessage(MessageTypeAuthSuccess, map[string]interface{}{
		"username":    c.username,
		"permissions": c.permissions,
	}))
	if status := c.hub.status(); status != nil {
		c.send <- c.encode(NewMessage(MessageTypeSystemStatus, status))
	}

	c.logger.Info("WebSocket client authenticated",
		zap.String("remote_addr", c.remoteAddr()),
		zap.String("username", c.username))

	// register only after auth
	if !c.hub.registerClient(c) {
		c.authenticated = false
		return false
	}
	return true
}

func (c *Client) sendAuthFailed(reason string) {
	c.send <- c.encode(NewMessage(MessageTypeAuthFailed, map[string]interface{}{
		"reason": reason,
	}))
}

func (c *Client) encode(msg Message) []byte {
	data, _ := json.Marshal(msg)
	return data
}

func (c *Client) handleMessage(msg map[string]interface{}) {
	c.logger.Debug("Received client message",
		zap.String("remote_addr", c.remoteAddr()),
		zap.Any("message", msg))
}

// writePump handles writing messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles WebSocket upgrade requests
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("WebSocket upgrade error",
			zap.Error(err),
			zap.String("remote_addr", r.RemoteAddr))
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: hub.logger,
	}

	go client.writePump()
	go client.readPump()
}
