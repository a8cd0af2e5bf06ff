// Package tcp provides the single-port raw listener. It serves plain TCP
// clients speaking newline-delimited JSON envelopes and WebSocket clients on
// the same socket, sniffing the first bytes to tell them apart.
package tcp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
)

// frameCodec reads and writes whole envelope frames on a raw connection.
type frameCodec interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
}

// lineCodec frames envelopes as JSON lines, one envelope per line.
type lineCodec struct {
	reader *bufio.Reader
	writer net.Conn
}

func (l *lineCodec) ReadFrame() ([]byte, error) {
	for {
		line, err := l.reader.ReadBytes('\n')
		if err != nil {
			return nil, err
		}
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			return line, nil
		}
	}
}

func (l *lineCodec) WriteFrame(data []byte) error {
	_, err := l.writer.Write(append(data, '\n'))
	return err
}

// wsCodec frames envelopes as WebSocket text messages on a connection that
// has already completed the gobwas handshake.
type wsCodec struct {
	rw io.ReadWriter
	mu sync.Mutex
}

func (w *wsCodec) ReadFrame() ([]byte, error) {
	return wsutil.ReadClientText(w.rw)
}

func (w *wsCodec) WriteFrame(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return wsutil.WriteServerText(w.rw, data)
}

// Conn adapts a raw socket plus a frame codec to relay.Conn, with the same
// buffered-outgoing-channel write path as the HTTP transport.
type Conn struct {
	id       string
	socket   net.Conn
	codec    frameCodec
	outgoing chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(socket net.Conn, codec frameCodec) *Conn {
	return &Conn{
		id:       uuid.NewString(),
		socket:   socket,
		codec:    codec,
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

// Send implements relay.Conn.
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

func (c *Conn) writeLoop() {
	for {
		select {
		case data := <-c.outgoing:
			if err := c.codec.WriteFrame(data); err != nil {
				c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}
