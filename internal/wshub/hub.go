package wshub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"reactionduel/internal/metrics"
)

// Message is the JSON envelope used in both directions on the wire.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Client represents a single participant's WebSocket connection.
type Client struct {
	PlayerID string
	RoomID   string
	Conn     *websocket.Conn
	Send     chan []byte
}

// WritePump reads from the Send channel and writes to the WebSocket
// connection until the context ends or the channel closes.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

// Hub tracks connected participants and routes outbound messages to a room's
// members or a single player. Sends are non-blocking: a client that cannot
// keep up has messages dropped rather than stalling the game flow.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	metrics *metrics.Metrics
	log     *zap.SugaredLogger
}

func NewHub(m *metrics.Metrics, log *zap.SugaredLogger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		metrics: m,
		log:     log,
	}
}

// Register adds a client, replacing any previous connection for the same
// player identity (reconnects keep the durable player id).
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[c.PlayerID]; ok {
		close(old.Send)
	}
	h.clients[c.PlayerID] = c
}

// Unregister removes the client and closes its Send channel. It reports
// whether conn was still the player's current connection; false means a newer
// connection already replaced it and the player is still registered.
func (h *Hub) Unregister(playerID string, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[playerID]
	if !ok || c.Conn != conn {
		return false
	}
	close(c.Send)
	delete(h.clients, playerID)
	return true
}

// SetRoom binds the player's connection to a room so room broadcasts reach it.
func (h *Hub) SetRoom(playerID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[playerID]; ok {
		c.RoomID = roomID
	}
}

// BroadcastRoom sends a message to every connected member of the room.
func (h *Hub) BroadcastRoom(roomID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Warnw("marshal broadcast failed", "type", msg.Type, "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.RoomID != roomID {
			continue
		}
		select {
		case c.Send <- data:
			h.metrics.MessageSent()
		default:
			// drop for slow clients
		}
	}
}

// SendTo sends a message to a single player, if connected.
func (h *Hub) SendTo(playerID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Warnw("marshal send failed", "type", msg.Type, "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[playerID]
	if !ok {
		return
	}
	select {
	case c.Send <- data:
		h.metrics.MessageSent()
	default:
	}
}
