// Package relay contains the core synchronization logic: the connection
// registry and the chat and draw channels that fan events out to connected
// peers. Transports hand connections to a Channel and stay out of the way.
package relay

// Conn is a single live client connection as a channel sees it.
// This interface isolates transport details from channel logic.
type Conn interface {
	// ID identifies the connection for the lifetime of the session.
	ID() string

	// Send enqueues one frame for delivery to this peer. It never blocks;
	// a non-nil error means the peer is gone and will not recover.
	Send(data []byte) error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}

// Channel is one logical real-time stream. A transport calls OnConnect once,
// OnMessage for each inbound frame in arrival order, and OnDisconnect once
// when the transport reports closure.
type Channel interface {
	OnConnect(conn Conn)
	OnMessage(conn Conn, data []byte)
	OnDisconnect(conn Conn)
}
