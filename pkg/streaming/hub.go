// Package streaming pushes live scan results over WebSocket so the
// dashboard sees new signals, price refreshes, and watch transitions
// without polling.
package streaming

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventType represents the type of streaming event.
type EventType string

const (
	EventTypeSignal    EventType = "signal"
	EventTypePrice     EventType = "price"
	EventTypeWatch     EventType = "watch"
	EventTypeScan      EventType = "scan"
	EventTypeStatus    EventType = "status"
	EventTypeError     EventType = "error"
	EventTypeHeartbeat EventType = "heartbeat"
)

var allEventTypes = []EventType{
	EventTypeSignal, EventTypePrice, EventTypeWatch, EventTypeScan,
	EventTypeStatus, EventTypeError, EventTypeHeartbeat,
}

// Event is a streaming event sent to clients.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Hub manages WebSocket connections and broadcasts events.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHub creates a new streaming hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log,
	}
}

// Run starts the hub's event loop.
func (h *Hub) Run() {
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("ws client connected", zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("ws client disconnected", zap.Int("remaining", total))

		case event := <-h.broadcast:
			h.broadcastEvent(event)

		case <-heartbeat.C:
			h.Broadcast(Event{
				Type:      EventTypeHeartbeat,
				Timestamp: time.Now(),
				Data:      map[string]interface{}{"clients": h.ClientCount()},
			})
		}
	}
}

func (h *Hub) broadcastEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("failed to marshal ws event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.isSubscribed(event.Type) {
			continue
		}

		select {
		case client.send <- data:
		default:
			// Client buffer full, drop the connection.
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// Broadcast sends an event to all connected clients.
func (h *Hub) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn("broadcast channel full, dropping event", zap.String("type", string(event.Type)))
	}
}

// BroadcastSignal broadcasts a scored signal.
func (h *Hub) BroadcastSignal(signal interface{}) {
	h.Broadcast(Event{Type: EventTypeSignal, Timestamp: time.Now(), Data: signal})
}

// BroadcastPrice broadcasts a refreshed token price.
func (h *Hub) BroadcastPrice(tokenID string, price float64) {
	h.Broadcast(Event{
		Type:      EventTypePrice,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"token_id": tokenID,
			"price":    price,
		},
	})
}

// BroadcastWatch broadcasts a watch-state transition.
func (h *Hub) BroadcastWatch(conditionID, state string) {
	h.Broadcast(Event{
		Type:      EventTypeWatch,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"condition_id": conditionID,
			"state":        state,
		},
	})
}

// BroadcastScan broadcasts a scan summary.
func (h *Hub) BroadcastScan(summary interface{}) {
	h.Broadcast(Event{Type: EventTypeScan, Timestamp: time.Now(), Data: summary})
}

// BroadcastStatus broadcasts a status update.
func (h *Hub) BroadcastStatus(status interface{}) {
	h.Broadcast(Event{Type: EventTypeStatus, Timestamp: time.Now(), Data: status})
}

// BroadcastError broadcasts an error event.
func (h *Hub) BroadcastError(err error, context string) {
	h.Broadcast(Event{
		Type:      EventTypeError,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"error":   err.Error(),
			"context": context,
		},
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS handles WebSocket upgrade requests.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:           h,
		conn:          conn,
		send:          make(chan []byte, 256),
		subscriptions: make(map[EventType]bool),
	}

	// Subscribe to everything by default; clients narrow via messages.
	for _, et := range allEventTypes {
		client.subscriptions[et] = true
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}
