package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Client is one connected page.
type Client struct {
	Conn      *websocket.Conn
	SessionID string
	Send      chan []byte
}

// InboundHandler receives frames clients send up the socket.
type InboundHandler func(sessionID string, msg Inbound)

// Hub manages session-scoped websocket clients.
type Hub struct {
	sessions   map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	logger     *logging.ChanneledLogger
	onInbound  InboundHandler
}

var _ Publisher = (*Hub)(nil)

func NewHub(logger *logging.ChanneledLogger) *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// OnInbound sets the handler for client frames. Call before Run.
func (h *Hub) OnInbound(fn InboundHandler) {
	h.onInbound = fn
}

// Run owns registration until ctx is cancelled. Run it as a goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.sessions[client.SessionID]; !ok {
				h.sessions[client.SessionID] = make(map[*Client]bool)
			}
			h.sessions[client.SessionID][client] = true
			h.mu.Unlock()
			h.logger.Realtime().Debug("Client registered", "sessionId", client.SessionID)

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
			h.logger.Realtime().Debug("Client unregistered", "sessionId", client.SessionID)

		case <-ctx.Done():
			h.mu.Lock()
			for _, clients := range h.sessions {
				for client := range clients {
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.sessions[client.SessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; ok {
		delete(clients, client)
		close(client.Send)
	}
	if len(clients) == 0 {
		delete(h.sessions, client.SessionID)
	}
}

// Register queues a client. It is a no-op once the hub stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SessionConnectionCount returns the number of open sockets for sessionID.
func (h *Hub) SessionConnectionCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

func (h *Hub) SendToSession(sessionID string, event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Realtime().Error("Failed to marshal event", "type", event.Type, "error", err.Error())
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.sessions[sessionID] {
		select {
		case client.Send <- message:
		default:
			h.logger.Realtime().Warn("Client buffer full, event dropped", "type", event.Type, "sessionId", sessionID)
		}
	}
}

func (h *Hub) Broadcast(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Realtime().Error("Failed to marshal event", "type", event.Type, "error", err.Error())
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.sessions {
		for client := range clients {
			select {
			case client.Send <- message:
			default:
			}
		}
	}
}

// Serve registers conn for sessionID and pumps frames until either side
// closes. It blocks.
func (h *Hub) Serve(conn *websocket.Conn, sessionID string) {
	client := &Client{Conn: conn, SessionID: sessionID, Send: make(chan []byte, sendBuffer)}
	if !h.Register(client) {
		conn.Close()
		return
	}

	go h.writePump(client)
	h.readPump(client)
}

func (h *Hub) readPump(c *Client) {
	defer func() {
		h.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(64 << 10)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Realtime().Debug("Websocket closed unexpectedly", "sessionId", c.SessionID, "error", err.Error())
			}
			return
		}
		var msg Inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.logger.Realtime().Debug("Ignoring malformed frame", "sessionId", c.SessionID)
			continue
		}
		if h.onInbound != nil {
			h.onInbound(c.SessionID, msg)
		}
	}
}

func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
