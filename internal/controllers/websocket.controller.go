package controllers

import (
	"log"
	"net/http"
	"time"

	"corewatch/internal/middleware"
	"corewatch/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Callers already passed token auth
		return true
	},
}

// HandleWebSocket upgrades an authenticated request and streams views
func (h *Handler) HandleWebSocket(c *gin.Context) {
	claims, _ := c.Get(middleware.ClaimsKey)
	endpoint := ""
	if cl, ok := claims.(*services.CustomClaims); ok {
		endpoint = cl.Endpoint
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	clientID := c.ClientIP() + "-" + uuid.NewString()[:8]
	if middleware.GlobalSecurityLogger != nil {
		middleware.GlobalSecurityLogger.LogWebSocketConnected(c.ClientIP(), clientID)
	}
	log.Printf("[WS] New connection %s for endpoint %s", clientID, endpoint)

	client := &services.ClientConnection{
		ID:   clientID,
		Conn: ws,
		Send: make(chan services.WebSocketMessage, 64),
	}

	h.Hub.Register(client)

	go h.readPump(client, c.ClientIP())
	go writePump(client)
}

// readPump reads messages from the WebSocket client
func (h *Handler) readPump(client *services.ClientConnection, ip string) {
	defer func() {
		h.Hub.Unregister(client.ID)
		client.Conn.Close()
		if middleware.GlobalSecurityLogger != nil {
			middleware.GlobalSecurityLogger.LogWebSocketDisconnected(ip, client.ID)
		}
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg services.WebSocketMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] WebSocket error: %v", err)
			}
			return
		}

		switch msg.Type {
		case "ping":
			h.Hub.SendMessage(client.ID, services.WebSocketMessage{
				Type:      "pong",
				Timestamp: time.Now(),
			})

		case "subscribe":
			// Already subscribed on connect
			log.Printf("[WS] Client %s subscribed to updates", client.ID)

		case "unsubscribe":
			return

		default:
			log.Printf("[WS] Unknown message type: %s", msg.Type)
		}
	}
}

// writePump writes queued messages and keepalive pings to the client
func writePump(client *services.ClientConnection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Send:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the queue
				_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[WS] Write error: %v", err)
				}
				return
			}

		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
