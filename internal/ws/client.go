package ws

import (
	"errors"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// Client pumps one upgraded socket into the hub
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	Conn *Connection
}

// NewClient registers conn with the hub for deviceID
func NewClient(hub *Hub, conn *websocket.Conn, deviceID string) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		Conn: hub.AcceptConnection(deviceID, conn),
	}
}

// ReadPump feeds inbound frames to the hub until the socket closes.
// Runs in a per-client goroutine
func (c *Client) ReadPump() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			switch {
			case errors.As(err, &closeErr):
				c.hub.HandleClose(c.Conn, closeErr.Code, closeErr.Text)
			case !c.Conn.IsOpen():
				// closed by the hub (superseded, idle or shutdown)
				c.hub.HandleClose(c.Conn, websocket.CloseNormalClosure, "closed by server")
			default:
				c.hub.HandleError(c.Conn, err)
			}
			return
		}

		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.hub.HandleMessage(c.Conn, message)
	}
}

// PingPump sends transport pings until the connection is closed.
// Runs in a per-client goroutine
func (c *Client) PingPump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.Conn.Done():
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Printf("⚠️  Ping to %s failed: %v", c.Conn.DeviceID, err)
				return
			}
		}
	}
}
