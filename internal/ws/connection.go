package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to deliver a close frame before the socket is dropped
	closeWait = time.Second
)

// Socket is the part of *websocket.Conn the hub writes through
type Socket interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Connection is one live socket owned by the hub
type Connection struct {
	DeviceID    string
	ID          string
	ConnectedAt time.Time

	socket  Socket
	writeMu sync.Mutex // gorilla allows one concurrent writer

	mu       sync.Mutex
	lastPing time.Time
	closed   bool
	done     chan struct{}
}

func newConnection(deviceID string, socket Socket, now time.Time) *Connection {
	return &Connection{
		DeviceID:    deviceID,
		ID:          uuid.NewString(),
		ConnectedAt: now,
		socket:      socket,
		lastPing:    now,
		done:        make(chan struct{}),
	}
}

// LastPing is the time of the last inbound message
func (c *Connection) LastPing() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPing
}

// IsOpen reports whether the hub still considers the socket writable
func (c *Connection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Done is closed once the connection is closed
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) markPing(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if at.After(c.lastPing) {
		c.lastPing = at
	}
}

func (c *Connection) write(data []byte) error {
	if !c.IsOpen() {
		return errConnectionClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.socket.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.socket.WriteMessage(websocket.TextMessage, data)
}

// markClosed flips the connection to closed; only the first caller gets true
func (c *Connection) markClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.done)
	return true
}

// closeWith sends a close frame with code and reason, then drops the socket
func (c *Connection) closeWith(code int, reason string) {
	if !c.markClosed() {
		return
	}
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.socket.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
	_ = c.socket.Close()
}

// terminate drops the socket without a close handshake
func (c *Connection) terminate() {
	if !c.markClosed() {
		return
	}
	_ = c.socket.Close()
}
