package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"corewatch/internal/models"

	"github.com/gorilla/websocket"
)

// WebSocketMessage represents a message sent over the dashboard socket
type WebSocketMessage struct {
	Type      string      `json:"type"` // "view", "command", "pong", "error"
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// ViewPayload is one published monitor view plus its derived process table
type ViewPayload struct {
	models.View
	Processes []models.ProcessTraffic `json:"processes,omitempty"`
}

// ClientConnection represents a connected dashboard client
type ClientConnection struct {
	ID   string
	Conn *websocket.Conn
	Send chan WebSocketMessage
}

// WebSocketHub fans published monitor views out to dashboard clients
type WebSocketHub struct {
	monitor    *Monitor
	clients    map[string]*ClientConnection
	broadcast  chan WebSocketMessage
	register   chan *ClientConnection
	unregister chan string
	mu         sync.RWMutex
	minGap     time.Duration
	done       chan struct{}
	stopOnce   sync.Once
}

// NewWebSocketHub creates a hub for m and starts it. Views are pushed at
// most once per minGap.
func NewWebSocketHub(m *Monitor, minGap time.Duration) *WebSocketHub {
	h := &WebSocketHub{
		monitor:    m,
		clients:    make(map[string]*ClientConnection),
		broadcast:  make(chan WebSocketMessage, 256),
		register:   make(chan *ClientConnection),
		unregister: make(chan string),
		minGap:     minGap,
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

// run manages the hub's event loop. A view published inside minGap of the
// last push is held and sent once the gap expires.
func (h *WebSocketHub) run() {
	updates, unsubscribe := h.monitor.Subscribe()
	defer unsubscribe()

	var (
		lastPush time.Time
		flush    *time.Timer
		flushC   <-chan time.Time
	)
	defer func() {
		if flush != nil {
			flush.Stop()
		}
	}()

	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.Send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("[WS] Client connected: %s (total: %d)", client.ID, total)
			// New clients get the current view right away
			h.sendTo(client, h.viewMessage())

		case clientID := <-h.unregister:
			h.mu.Lock()
			if client, exists := h.clients[clientID]; exists {
				delete(h.clients, clientID)
				close(client.Send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("[WS] Client disconnected: %s (total: %d)", clientID, total)

		case msg := <-h.broadcast:
			h.fanOut(msg)

		case <-updates:
			if flushC != nil {
				// already held; the flush sends the newest view
				continue
			}
			if wait := h.minGap - time.Since(lastPush); h.minGap > 0 && wait > 0 {
				flush = time.NewTimer(wait)
				flushC = flush.C
				continue
			}
			if h.pushView() {
				lastPush = time.Now()
			}

		case <-flushC:
			flush, flushC = nil, nil
			if h.pushView() {
				lastPush = time.Now()
			}
		}
	}
}

// pushView sends the current view to every client. It reports whether any
// client was there to receive it.
func (h *WebSocketHub) pushView() bool {
	if h.ClientCount() == 0 {
		return false
	}
	h.fanOut(h.viewMessage())
	return true
}

func (h *WebSocketHub) viewMessage() WebSocketMessage {
	view := h.monitor.View()
	payload := ViewPayload{
		View:      view,
		Processes: TopProcesses(view.Connections, 10),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[WS] Error marshaling view: %v", err)
		return WebSocketMessage{Type: "error", Timestamp: time.Now(), Error: err.Error()}
	}
	return WebSocketMessage{
		Type:      "view",
		Timestamp: time.Now(),
		Data:      json.RawMessage(data),
	}
}

func (h *WebSocketHub) fanOut(msg WebSocketMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		h.sendTo(client, msg)
	}
}

// sendTo drops msg when the client's queue is full
func (h *WebSocketHub) sendTo(client *ClientConnection, msg WebSocketMessage) {
	select {
	case client.Send <- msg:
	default:
	}
}

// Register adds a new client to the hub
func (h *WebSocketHub) Register(client *ClientConnection) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes a client from the hub
func (h *WebSocketHub) Unregister(clientID string) {
	select {
	case h.unregister <- clientID:
	case <-h.done:
	}
}

// Broadcast sends a message to all connected clients
func (h *WebSocketHub) Broadcast(msg WebSocketMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// SendMessage sends a message to a specific client
func (h *WebSocketHub) SendMessage(clientID string, msg WebSocketMessage) {
	h.mu.RLock()
	client, exists := h.clients[clientID]
	if exists {
		h.sendTo(client, msg)
	}
	h.mu.RUnlock()
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop gracefully stops the hub and closes every client queue
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}
