package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ikkim/storefront-backend/internal/telemetry"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

// Event types pushed to browser sessions
const (
	EventCartUpdated   = "cart.updated"
	EventCouponUpdated = "coupon.updated"
	EventOrderUpdated  = "order.updated"
	EventPong          = "pong"
)

// Event is the JSON frame sent to clients. Data carries a hint, never the cart
// itself; clients refetch GET /cart so the server stays the source of truth.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
	At   time.Time   `json:"at"`
}

// ClientMessage is a frame received from a browser session
type ClientMessage struct {
	Type string `json:"type"` // ping
}

// Client is one websocket session of a user
type Client struct {
	Hub           *Hub
	Conn          *Conn
	UserID        uint
	Send          chan []byte
	MessageCount  int
	LastResetTime time.Time
	RateMu        sync.Mutex
}

// Hub fans events out to every open session of a user, so a change in one tab
// makes the other tabs re-sync.
type Hub struct {
	clients map[uint][]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *userMessage

	metrics *telemetry.BusinessMetrics
	mu      sync.RWMutex
}

type userMessage struct {
	UserID  uint
	Message []byte
}

func NewHub(metrics *telemetry.BusinessMetrics) *Hub {
	return &Hub{
		clients:    make(map[uint][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *userMessage, 1024),
		metrics:    metrics,
	}
}

// Run processes registrations and deliveries until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			sessions := len(h.clients[client.UserID])
			h.mu.Unlock()
			h.metrics.WebsocketOpened()
			logger.Debug("WebSocket client registered", map[string]interface{}{
				"user_id":        client.UserID,
				"total_sessions": sessions,
			})

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			clientList := h.clients[message.UserID]
			for _, client := range clientList {
				select {
				case client.Send <- message.Message:
				default:
					go h.Unregister(client)
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"user_id": message.UserID,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clientList, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	newList := make([]*Client, 0, len(clientList))
	found := false
	for _, c := range clientList {
		if c == client {
			found = true
			continue
		}
		newList = append(newList, c)
	}
	if !found {
		return
	}
	if len(newList) == 0 {
		delete(h.clients, client.UserID)
	} else {
		h.clients[client.UserID] = newList
	}
	close(client.Send)
	h.metrics.WebsocketClosed()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, clientList := range h.clients {
		for _, c := range clientList {
			close(c.Send)
			h.metrics.WebsocketClosed()
		}
		delete(h.clients, userID)
	}
}

// Notify queues an event for every session of userID. Delivery is best effort;
// a full queue drops the event since clients also re-sync on focus.
func (h *Hub) Notify(userID uint, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data, At: time.Now().UTC()})
	if err != nil {
		logger.Error("Failed to marshal websocket event", err, nil)
		return
	}

	select {
	case h.broadcast <- &userMessage{UserID: userID, Message: payload}:
	default:
		logger.Warn("Broadcast channel full, event dropped", map[string]interface{}{
			"user_id": userID,
			"type":    eventType,
		})
	}
}

// Register adds a client session
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client session
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// IsUserOnline reports whether the user has at least one open session
func (h *Hub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// SessionCount returns the number of open sessions of the user
func (h *Hub) SessionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// HandleClientMessage answers pings and ignores everything else
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"user_id": client.UserID,
			"count":   count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"user_id": client.UserID,
			"error":   err.Error(),
		})
		return
	}

	if msg.Type == "ping" {
		payload, _ := json.Marshal(Event{Type: EventPong, At: now.UTC()})
		select {
		case client.Send <- payload:
		default:
		}
	}
}
