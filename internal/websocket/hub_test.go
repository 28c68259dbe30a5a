package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/models"
)

func startHub(t *testing.T) (*Hub, string, *atomic.Int64) {
	t.Helper()

	var clients atomic.Int64
	hub := NewHub(func(n int) { clients.Store(int64(n)) })

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http"), &clients
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubBroadcastsReports(t *testing.T) {
	hub, url, clients := startHub(t)
	conn := dial(t, url)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), clients.Load())

	require.NoError(t, hub.PublishReport(&models.RiskReport{ID: "r1", Symbol: "AAPL", TrialCount: 10}))

	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeRiskReport, msg.Type)
	assert.Equal(t, "AAPL", msg.Symbol)

	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "r1", data["id"])
}

func TestHubHonoursSubscriptions(t *testing.T) {
	hub, url, _ := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(SubscriptionMessage{Type: "subscribe", Symbols: []string{"MSFT"}, ID: "s1"}))
	confirm := readMessage(t, conn)
	assert.Equal(t, "subscription_confirmed", confirm.Type)
	assert.Equal(t, "s1", confirm.ID)

	require.NoError(t, hub.PublishReport(&models.RiskReport{ID: "a", Symbol: "AAPL"}))
	require.NoError(t, hub.PublishReport(&models.RiskReport{ID: "m", Symbol: "MSFT"}))

	msg := readMessage(t, conn)
	assert.Equal(t, "MSFT", msg.Symbol)
}

func TestHubAnswersPingAndRejectsGarbage(t *testing.T) {
	hub, url, _ := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(SubscriptionMessage{Type: "ping", ID: "p"}))
	assert.Equal(t, "pong", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	assert.Equal(t, "error", readMessage(t, conn).Type)
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, url, clients := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(0), clients.Load())
}
