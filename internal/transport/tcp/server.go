package tcp

import (
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"

	"github.com/gobwas/ws"

	"pixelboard/internal/relay"
)

// Server accepts raw connections on a single port. HTTP openings are
// upgraded to WebSocket with gobwas and routed to a channel by request path;
// anything else is treated as a plain TCP client speaking JSON lines and
// joins the fallback channel (a raw socket carries no path to route on).
type Server struct {
	address  string
	listener net.Listener
	channels map[string]relay.Channel
	fallback relay.Channel
	quit     chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	sockets map[net.Conn]struct{}
}

// New creates a Server. channels maps upgrade request paths (e.g. "/chat")
// to channels; fallback receives plain TCP clients.
func New(address string, channels map[string]relay.Channel, fallback relay.Channel) *Server {
	return &Server{
		address:  address,
		channels: channels,
		fallback: fallback,
		quit:     make(chan struct{}),
		sockets:  make(map[net.Conn]struct{}),
	}
}

// Start starts accepting connections. It blocks until Stop is called.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start raw listener: %w", err)
	}
	// Published under the lock: Addr and Stop read it from other goroutines.
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	log.Printf("Raw listener started on %s (TCP and WebSocket)", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
				log.Printf("Failed to accept connection: %v", err)
				continue
			}
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Stop closes the listener and every live connection, then waits for the
// connection handlers to finish.
func (s *Server) Stop() {
	close(s.quit)

	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	for socket := range s.sockets {
		socket.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Addr returns the listening address, or "" before Start has bound it.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// readWriter joins the peeked buffered reader with the raw socket for
// writes, so bytes consumed during protocol detection are not lost.
type readWriter struct {
	io.Reader
	io.Writer
}

func (s *Server) handleConn(socket net.Conn) {
	s.mu.Lock()
	s.sockets[socket] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sockets, socket)
		s.mu.Unlock()
	}()

	proto, reader, err := detectProtocol(socket)
	if err != nil {
		socket.Close()
		return
	}

	rw := &readWriter{Reader: reader, Writer: socket}

	var channel relay.Channel
	var codec frameCodec

	switch proto {
	case protocolHTTP:
		var path string
		upgrader := ws.Upgrader{
			OnRequest: func(uri []byte) error {
				path = string(uri)
				return nil
			},
		}
		if _, err := upgrader.Upgrade(rw); err != nil {
			log.Printf("Failed to upgrade connection from %s: %v", socket.RemoteAddr(), err)
			socket.Close()
			return
		}
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		channel = s.channels[path]
		if channel == nil {
			log.Printf("No channel at %q, closing connection from %s", path, socket.RemoteAddr())
			socket.Close()
			return
		}
		codec = &wsCodec{rw: rw}

	case protocolRaw:
		channel = s.fallback
		if channel == nil {
			socket.Close()
			return
		}
		codec = &lineCodec{reader: reader, writer: socket}
	}

	conn := newConn(socket, codec)
	channel.OnConnect(conn)
	go conn.writeLoop()

	defer func() {
		channel.OnDisconnect(conn)
		conn.Close()
	}()

	for {
		data, err := codec.ReadFrame()
		if err != nil {
			if err != io.EOF {
				log.Printf("Error reading from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}
		channel.OnMessage(conn, data)
	}
}
