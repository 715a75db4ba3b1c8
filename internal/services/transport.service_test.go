package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"corewatch/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketTransport_OpensChannelPath(t *testing.T) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(_ *http.Request) bool { return true },
	}
	requests := make(chan *http.Request, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("Upgrade error: %v", err)
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"up":1,"down":2}`))
		// hold the socket until the client closes
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	tr := NewWebSocketTransport(time.Second, false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := tr.Open(ctx, endpointFor(t, srv, "s3cret"), models.ChannelLogs, url.Values{"level": {"debug"}})
	require.NoError(t, err)
	defer session.Close()

	r := <-requests
	assert.Equal(t, "/logs", r.URL.Path)
	assert.Equal(t, "debug", r.URL.Query().Get("level"))
	assert.Equal(t, "s3cret", r.URL.Query().Get("token"))
	assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))

	data, err := session.Receive()
	require.NoError(t, err)
	assert.JSONEq(t, `{"up":1,"down":2}`, string(data))

	// cancelling the open context closes the session
	cancel()
	_, err = session.Receive()
	assert.Error(t, err)
}

func TestWebSocketTransport_UnauthorizedHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tr := NewWebSocketTransport(time.Second, false)
	_, err := tr.Open(context.Background(), endpointFor(t, srv, "wrong"), models.ChannelTraffic, nil)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, KindAuth, classifyError(models.ChannelTraffic, KindOpen, err).Kind)
}

func TestWebSocketTransport_RefusedIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := endpointFor(t, srv, "")
	srv.Close()

	tr := NewWebSocketTransport(time.Second, false)
	_, err := tr.Open(context.Background(), endpoint, models.ChannelTraffic, nil)
	require.Error(t, err)
	assert.True(t, classifyError(models.ChannelTraffic, KindOpen, err).Retryable())
}

func TestWebSocketTransport_CancelWhileOpening(t *testing.T) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(_ *http.Request) bool { return true },
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	tr := NewWebSocketTransport(time.Second, false)
	endpoint := endpointFor(t, srv, "")

	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		// lands before, during or after the handshake
		go cancel()

		session, err := tr.Open(ctx, endpoint, models.ChannelTraffic, nil)
		if err != nil {
			continue
		}
		_, err = session.Receive()
		assert.Error(t, err)
		assert.NoError(t, session.Close())
	}
}

func TestWebSocketTransport_UntrustedCertificate(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()
	endpoint := endpointFor(t, srv, "")
	endpoint.TLS = true

	tr := NewWebSocketTransport(time.Second, false)
	_, err := tr.Open(context.Background(), endpoint, models.ChannelTraffic, nil)
	require.Error(t, err)

	serr := classifyError(models.ChannelTraffic, KindOpen, err)
	assert.Equal(t, KindTLS, serr.Kind)
	assert.False(t, serr.Retryable())
}

// countingTransport counts the Open calls made through it
type countingTransport struct {
	Transport
	mu    sync.Mutex
	opens int
}

func (t *countingTransport) Open(ctx context.Context, endpoint models.ServerEndpoint, ch models.Channel, query url.Values) (Session, error) {
	t.mu.Lock()
	t.opens++
	t.mu.Unlock()
	return t.Transport.Open(ctx, endpoint, ch, query)
}

func (t *countingTransport) openCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opens
}

func TestStreamController_UntrustedCertificateIsNotRetried(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()
	endpoint := endpointFor(t, srv, "")
	endpoint.TLS = true

	tr := &countingTransport{Transport: NewWebSocketTransport(time.Second, false)}
	c := newTestController(tr, &recordingSink{}, fastPolicy())
	defer c.Stop()

	c.Start(endpoint)
	require.Eventually(t, stateIs(c, models.StateError), waitFor, tick)
	assert.Contains(t, c.Status().Message, "tls")

	// several retry delays pass without another attempt
	time.Sleep(10 * fastPolicy().RetryDelay)
	assert.Equal(t, 1, tr.openCount())
	assert.False(t, c.Status().RetryPending)
	assert.Equal(t, models.StateError, c.Status().State)
}
