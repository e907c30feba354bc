package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelpulse/internal/config"
	"fuelpulse/internal/shared/testutil"
	"fuelpulse/pkg/contracts/events"
)

func newTestServer(t *testing.T) (*Hub, string) {
	t.Helper()
	logger, _ := testutil.NewCaptureLogger()
	hub := NewHub(logger, nil)
	hub.Start()

	cfg := HandlerConfigFrom(config.Default())
	cfg.AllowedOrigins = []string{"http://dashboard.example"}
	srv := httptest.NewServer(NewHandler(hub, cfg, logger))

	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestHandler_UpgradeAndBroadcast(t *testing.T) {
	hub, url := newTestServer(t)

	header := http.Header{}
	header.Set("Origin", "http://dashboard.example")
	header.Set("X-Request-ID", "req-42")
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var connect events.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&connect))
	assert.Equal(t, events.MessageTypeConnect, connect.Type)
	assert.Equal(t, "req-42", connect.TraceID)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`)))

	hub.BroadcastEvent(t.Context(), events.MessageTypeMarketRefreshed, events.MarketRefreshedData{
		Products: []string{"diesel", "gasoline"},
	})

	var refreshed events.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&refreshed))
	assert.Equal(t, events.MessageTypeMarketRefreshed, refreshed.Type)
	data := refreshed.Data.(map[string]interface{})
	assert.Equal(t, []interface{}{"diesel", "gasoline"}, data["products"])
	assert.Equal(t, 1, hub.ClientCount())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_RejectsUnknownOrigin(t *testing.T) {
	hub, url := newTestServer(t)

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, hub.ClientCount())
}

func TestHandler_ShutdownClosesClients(t *testing.T) {
	hub, url := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var connect events.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&connect))

	hub.Stop()

	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived, websocket.CloseNormalClosure),
		"unexpected error: %v", err)
}
