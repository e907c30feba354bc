package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var errMockClosed = errors.New("connection closed")

// mockFrame is a message seen by mockConnection
type mockFrame struct {
	Type int
	Data []byte
}

// mockConnection is an in-memory Connection. Reads block until a frame is
// pushed or the connection is closed; writes are recorded on a channel.
type mockConnection struct {
	incoming chan mockFrame
	written  chan mockFrame

	mu          sync.Mutex
	closed      chan struct{}
	closeOnce   sync.Once
	readLimit   int64
	pongHandler func(string) error
}

func newMockConnection() *mockConnection {
	return &mockConnection{
		incoming: make(chan mockFrame),
		written:  make(chan mockFrame, 512),
		closed:   make(chan struct{}),
	}
}

// push delivers a frame to ReadMessage
func (m *mockConnection) push(messageType int, data []byte) {
	select {
	case m.incoming <- mockFrame{Type: messageType, Data: data}:
	case <-m.closed:
	}
}

func (m *mockConnection) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

func (m *mockConnection) ReadMessage() (int, []byte, error) {
	select {
	case f := <-m.incoming:
		return f.Type, f.Data, nil
	case <-m.closed:
		return 0, nil, &websocket.CloseError{Code: websocket.CloseGoingAway}
	}
}

func (m *mockConnection) WriteMessage(messageType int, data []byte) error {
	if m.isClosed() {
		return errMockClosed
	}
	select {
	case m.written <- mockFrame{Type: messageType, Data: data}:
		return nil
	default:
		return errors.New("mock write buffer full")
	}
}

func (m *mockConnection) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

func (m *mockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readLimit = limit
}

func (m *mockConnection) SetReadDeadline(time.Time) error  { return nil }
func (m *mockConnection) SetWriteDeadline(time.Time) error { return nil }

func (m *mockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pongHandler = h
}

func (m *mockConnection) RemoteAddr() string {
	return "127.0.0.1:50000"
}
