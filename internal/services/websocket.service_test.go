package services

import (
	"encoding/json"
	"testing"
	"time"

	"corewatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(id string) *ClientConnection {
	return &ClientConnection{ID: id, Send: make(chan WebSocketMessage, 64)}
}

func decodeView(msg WebSocketMessage) (ViewPayload, bool) {
	var payload ViewPayload
	raw, ok := msg.Data.(json.RawMessage)
	if msg.Type != "view" || !ok {
		return payload, false
	}
	return payload, json.Unmarshal(raw, &payload) == nil
}

func readView(t *testing.T, msg WebSocketMessage) ViewPayload {
	t.Helper()
	payload, ok := decodeView(msg)
	require.True(t, ok, "not a view message: %+v", msg)
	return payload
}

func TestWebSocketHub_SendsViewOnRegister(t *testing.T) {
	m := newTestMonitor(t, newFakeTransport(), &fakeAPI{})
	hub := NewWebSocketHub(m, 0)
	defer hub.Stop()

	client := newTestClient("a")
	hub.Register(client)

	select {
	case msg := <-client.Send:
		payload := readView(t, msg)
		assert.Equal(t, testEndpoint.Addr(), payload.Endpoint)
	case <-time.After(waitFor):
		t.Fatal("no view after register")
	}
	assert.Equal(t, 1, hub.ClientCount())
}

func TestWebSocketHub_PushesLastViewOfBurst(t *testing.T) {
	m := newTestMonitor(t, newFakeTransport(), &fakeAPI{})
	hub := NewWebSocketHub(m, 300*time.Millisecond)
	defer hub.Stop()

	client := newTestClient("a")
	hub.Register(client)

	require.NoError(t, m.Command(models.ChannelTraffic, "pause"))
	require.Eventually(t, func() bool {
		return m.View().Statuses[models.ChannelTraffic].State == models.StatePaused
	}, waitFor, tick)
	require.NoError(t, m.Command(models.ChannelMemory, "pause"))
	require.Eventually(t, func() bool {
		return m.View().Statuses[models.ChannelMemory].State == models.StatePaused
	}, waitFor, tick)
	want := m.View().Version

	var last ViewPayload
	assert.Eventually(t, func() bool {
		for {
			select {
			case msg := <-client.Send:
				if payload, ok := decodeView(msg); ok {
					last = payload
				}
			default:
				return last.Version == want
			}
		}
	}, waitFor, tick)
	assert.Equal(t, models.StatePaused, last.Statuses[models.ChannelMemory].State)
}

func TestWebSocketHub_BroadcastAndSendMessage(t *testing.T) {
	m := newTestMonitor(t, newFakeTransport(), &fakeAPI{})
	hub := NewWebSocketHub(m, time.Hour)
	defer hub.Stop()

	a, b := newTestClient("a"), newTestClient("b")
	hub.Register(a)
	hub.Register(b)
	<-a.Send
	<-b.Send

	hub.Broadcast(WebSocketMessage{Type: "command", Timestamp: time.Now()})
	for _, client := range []*ClientConnection{a, b} {
		select {
		case msg := <-client.Send:
			assert.Equal(t, "command", msg.Type)
		case <-time.After(waitFor):
			t.Fatalf("client %s missed the broadcast", client.ID)
		}
	}

	hub.SendMessage("b", WebSocketMessage{Type: "pong"})
	msg := <-b.Send
	assert.Equal(t, "pong", msg.Type)
	assert.Empty(t, a.Send)
}

func TestWebSocketHub_StopClosesClients(t *testing.T) {
	m := newTestMonitor(t, newFakeTransport(), &fakeAPI{})
	hub := NewWebSocketHub(m, 0)

	client := newTestClient("a")
	hub.Register(client)
	<-client.Send

	hub.Unregister("a")
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, waitFor, tick)

	late := newTestClient("b")
	hub.Stop()
	hub.Stop()
	hub.Register(late)

	closed := make(chan struct{})
	go func() {
		for range late.Send {
		}
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(waitFor):
		t.Fatal("client queue left open after stop")
	}
}
