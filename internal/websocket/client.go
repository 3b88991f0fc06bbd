// internal/websocket/client.go
package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// Client is one dashboard subscriber on the live feed.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	out    chan []byte
	done   chan struct{}
	userID int
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		out:    make(chan []byte, 64),
		done:   make(chan struct{}),
		userID: userID,
	}
}

// Register hands the client to the hub. Call before starting the pumps.
func (c *Client) Register() {
	c.hub.register <- c
}

func (c *Client) close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

// ReadPump drains the connection so pings and close frames are processed.
// Inbound frames carry no commands; the feed is one-way.
func (c *Client) ReadPump() {
	defer func() {
		// Skip the unregister round-trip when the hub already dropped us.
		select {
		case c.hub.unregister <- c:
		case <-c.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// WritePump writes queued events and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
