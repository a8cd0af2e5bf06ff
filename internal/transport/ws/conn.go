// Package ws provides the HTTP-upgrade WebSocket transport. It adapts
// gorilla connections to the relay.Conn interface and pumps frames between
// the socket and the owning channel.
package ws

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn wraps a gorilla websocket connection. Writes go through a buffered
// outgoing channel drained by a dedicated writer goroutine, so a slow peer
// never blocks a broadcast.
type Conn struct {
	id       string
	socket   *websocket.Conn
	outgoing chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// NewConn wraps an upgraded websocket connection.
func NewConn(socket *websocket.Conn) *Conn {
	return &Conn{
		id:       uuid.NewString(),
		socket:   socket,
		outgoing: make(chan []byte, 64),
		closed:   make(chan struct{}),
	}
}

// ID implements relay.Conn.
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr implements relay.Conn.
func (c *Conn) RemoteAddr() string {
	return c.socket.RemoteAddr().String()
}

// Send implements relay.Conn. It enqueues without blocking; a closed
// connection or a full buffer is reported as a terminal delivery failure.
func (c *Conn) Send(data []byte) error {
	select {
	case <-c.closed:
		return fmt.Errorf("connection %s is closed", c.id)
	default:
	}
	select {
	case c.outgoing <- data:
		return nil
	case <-c.closed:
		return fmt.Errorf("connection %s is closed", c.id)
	default:
		return fmt.Errorf("connection %s send buffer is full", c.id)
	}
}

// Close tears the connection down. Safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.socket.Close()
	})
}

// writeLoop drains the outgoing channel onto the socket. A write failure
// closes the connection; the read loop then observes the closure and reports
// the disconnect to the channel.
func (c *Conn) writeLoop() {
	for {
		select {
		case data := <-c.outgoing:
			if err := c.socket.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}
		case <-c.closed:
			c.socket.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
