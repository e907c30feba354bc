package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"fuelpulse/internal/infrastructure"
	"fuelpulse/internal/shared/testutil"
	"fuelpulse/pkg/contracts"
	"fuelpulse/pkg/contracts/events"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	logger, _ := testutil.NewCaptureLogger()
	hub := NewHub(logger, nil)
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func newTestClient(hub *Hub) (*Client, *mockConnection) {
	conn := newMockConnection()
	return NewClient(hub, conn, nil, ClientOptions{TraceID: "trace-client"}), conn
}

// nextMessage waits for the next text frame written to conn
func nextMessage(t *testing.T, conn *mockConnection) events.WebSocketMessage {
	t.Helper()
	for {
		select {
		case f := <-conn.written:
			if f.Type != websocket.TextMessage {
				continue
			}
			var msg events.WebSocketMessage
			require.NoError(t, json.Unmarshal(f.Data, &msg))
			return msg
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for a message")
			return events.WebSocketMessage{}
		}
	}
}

func TestHub_RegisterSendsConnectMessage(t *testing.T) {
	hub := startHub(t)
	client, conn := newTestClient(hub)

	require.True(t, hub.Register(client))
	done := make(chan struct{})
	go func() {
		defer close(done)
		client.WritePump()
	}()

	msg := nextMessage(t, conn)
	assert.Equal(t, events.MessageTypeConnect, msg.Type)
	assert.Equal(t, "trace-client", msg.TraceID)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, client.ID(), data["client_id"])
	assert.Equal(t, contracts.APIVersion, data["api_version"])
	assert.Equal(t, 1, hub.ClientCount())

	hub.Stop()
	<-done
	assert.Zero(t, hub.ClientCount())
	assert.True(t, conn.isClosed())
}

func TestHub_BroadcastEvent(t *testing.T) {
	hub := startHub(t)

	var conns []*mockConnection
	for range 2 {
		client, conn := newTestClient(hub)
		require.True(t, hub.Register(client))
		go client.WritePump()
		conns = append(conns, conn)
		require.Equal(t, events.MessageTypeConnect, nextMessage(t, conn).Type)
	}

	ctx := infrastructure.WithTraceID(t.Context(), "trace-broadcast")
	hub.BroadcastEvent(ctx, events.MessageTypeComparisonUpdated, events.ComparisonUpdatedData{StationID: "st-1"})

	for _, conn := range conns {
		msg := nextMessage(t, conn)
		assert.Equal(t, events.MessageTypeComparisonUpdated, msg.Type)
		assert.Equal(t, "trace-broadcast", msg.TraceID)
		data := msg.Data.(map[string]interface{})
		assert.Equal(t, "st-1", data["station_id"])
	}

	hub.Broadcast("custom", map[string]int{"n": 1})
	for _, conn := range conns {
		assert.Equal(t, events.MessageType("custom"), nextMessage(t, conn).Type)
	}

	assert.Eventually(t, func() bool {
		return hub.GetHubMetrics()["messages_sent"] == int64(4)
	}, time.Second, 5*time.Millisecond)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := startHub(t)
	client, _ := newTestClient(hub)
	require.True(t, hub.Register(client))

	// No write pump is running, so the send buffer fills up.
	for i := range sendBuffer + 1 {
		hub.Broadcast("tick", i)
	}

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Positive(t, hub.GetHubMetrics()["messages_dropped"])
}

func TestHub_ReadPumpUnregistersOnClose(t *testing.T) {
	hub := startHub(t)
	client, conn := newTestClient(hub)
	require.True(t, hub.Register(client))

	readDone := make(chan struct{})
	writeDone := make(chan struct{})
	go func() {
		defer close(readDone)
		client.ReadPump()
	}()
	go func() {
		defer close(writeDone)
		client.WritePump()
	}()

	conn.push(websocket.TextMessage, []byte(`{"type":"heartbeat"}`))
	conn.push(websocket.TextMessage, []byte("hello\nthere"))
	assert.Eventually(t, func() bool { return client.messagesReceived.Load() == 2 }, time.Second, 5*time.Millisecond)

	conn.Close()
	<-readDone
	<-writeDone
	assert.Zero(t, hub.ClientCount())
	assert.EqualValues(t, maxMessageSize, conn.readLimit)
}

func TestHub_StoppedHub(t *testing.T) {
	hub := startHub(t)
	hub.Stop()
	hub.Stop()

	client, _ := newTestClient(hub)
	assert.False(t, hub.Register(client))
	hub.Unregister(client)

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()
	for i := range broadcastBuffer * 2 {
		hub.BroadcastEvent(ctx, events.MessageTypeMarketRefreshed, fmt.Sprint(i))
	}
	require.NoError(t, ctx.Err())
}

func TestHub_BroadcastHonoursContext(t *testing.T) {
	logger, handler := testutil.NewCaptureLogger()
	// Not started: nothing drains the broadcast channel.
	hub := NewHub(logger, nil)
	defer hub.Stop()

	for i := range broadcastBuffer {
		hub.Broadcast("fill", i)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	hub.BroadcastEvent(ctx, events.MessageTypeMarketRefreshed, nil)
	assert.True(t, handler.ContainsMessage("Broadcast abandoned"))
}

func TestNewClient_KeepaliveDefaults(t *testing.T) {
	tests := []struct {
		name       string
		opts       ClientOptions
		wantPing   time.Duration
		wantPongTo time.Duration
	}{
		{"zero options", ClientOptions{}, DefaultPingPeriod, DefaultPongWait},
		{"custom", ClientOptions{PingPeriod: time.Second, PongWait: 2 * time.Second}, time.Second, 2 * time.Second},
		{"ping not shorter than pong", ClientOptions{PingPeriod: 5 * time.Second, PongWait: 5 * time.Second}, 4500 * time.Millisecond, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(nil, newMockConnection(), nil, tt.opts)
			assert.Equal(t, tt.wantPing, c.pingPeriod)
			assert.Equal(t, tt.wantPongTo, c.pongWait)
			assert.NotEmpty(t, c.ID())
			assert.Equal(t, "127.0.0.1:50000", c.remoteAddr)
		})
	}
}
