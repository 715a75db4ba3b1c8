package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"corewatch/internal/models"

	"github.com/gorilla/websocket"
)

// Transport opens streaming sessions against a controller
type Transport interface {
	Open(ctx context.Context, endpoint models.ServerEndpoint, channel models.Channel, query url.Values) (Session, error)
}

// Session is one open streaming socket. Receive blocks until a frame arrives
// or the session is closed; cancelling the context passed to Open closes it.
// Close may be called more than once.
type Session interface {
	Receive() ([]byte, error)
	Send(data []byte) error
	Close() error
}

// WebSocketTransport dials controller streams with gorilla/websocket
type WebSocketTransport struct {
	dialer *websocket.Dialer
}

// NewWebSocketTransport creates a transport. insecure disables certificate
// verification for self-signed controllers.
func NewWebSocketTransport(handshakeTimeout time.Duration, insecure bool) *WebSocketTransport {
	if handshakeTimeout <= 0 {
		handshakeTimeout = 10 * time.Second
	}
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
		ReadBufferSize:   4096,
		WriteBufferSize:  1024,
	}
	if insecure {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &WebSocketTransport{dialer: dialer}
}

// Open dials the channel's stream path
func (t *WebSocketTransport) Open(ctx context.Context, endpoint models.ServerEndpoint, channel models.Channel, query url.Values) (Session, error) {
	headers := http.Header{}
	if endpoint.Secret != "" {
		headers.Set("Authorization", "Bearer "+endpoint.Secret)
	}

	conn, resp, err := t.dialer.DialContext(ctx, endpoint.StreamURL(channel.Path(), query), headers)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusUnauthorized {
				return nil, fmt.Errorf("dial %s: %w", channel.Path(), ErrUnauthorized)
			}
			return nil, fmt.Errorf("dial %s: %w (status %s)", channel.Path(), err, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", channel.Path(), err)
	}

	s := &wsSession{conn: conn}
	// owners always cancel ctx once the attempt ends, which releases this
	context.AfterFunc(ctx, func() { s.Close() })
	return s, nil
}

type wsSession struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (s *wsSession) Receive() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	return data, err
}

func (s *wsSession) Send(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
