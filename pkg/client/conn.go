// Package client provides Go clients for the chat and draw channels. The
// server address selects the transport: ws:// and wss:// dial a WebSocket,
// tcp:// dials a plain socket speaking JSON lines.
package client

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/coder/websocket"
)

// transportConn abstracts the two wire transports behind whole-frame reads
// and writes.
type transportConn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
	Close() error
}

// dial connects to rawURL using the transport its scheme names.
func dial(rawURL string) (transportConn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server address %q: %w", rawURL, err)
	}

	switch u.Scheme {
	case "ws", "wss":
		conn, _, err := websocket.Dial(context.Background(), rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to server: %w", err)
		}
		return &websocketConn{conn: conn}, nil
	case "tcp":
		conn, err := net.Dial("tcp", u.Host)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to server: %w", err)
		}
		return &tcpConn{conn: conn, reader: bufio.NewReader(conn)}, nil
	default:
		return nil, fmt.Errorf("unsupported scheme %q (want ws, wss or tcp)", u.Scheme)
	}
}

type websocketConn struct {
	conn *websocket.Conn
}

func (w *websocketConn) ReadFrame() ([]byte, error) {
	_, data, err := w.conn.Read(context.Background())
	return data, err
}

func (w *websocketConn) WriteFrame(data []byte) error {
	return w.conn.Write(context.Background(), websocket.MessageText, data)
}

func (w *websocketConn) Close() error {
	return w.conn.Close(websocket.StatusNormalClosure, "")
}

type tcpConn struct {
	conn   net.Conn
	reader *bufio.Reader
}

func (t *tcpConn) ReadFrame() ([]byte, error) {
	for {
		line, err := t.reader.ReadBytes('\n')
		if err != nil {
			return nil, err
		}
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			return line, nil
		}
	}
}

func (t *tcpConn) WriteFrame(data []byte) error {
	_, err := t.conn.Write(append(data, '\n'))
	return err
}

func (t *tcpConn) Close() error {
	return t.conn.Close()
}
