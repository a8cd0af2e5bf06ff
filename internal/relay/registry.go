package relay

import (
	"log"
	"sync"
)

// Registry tracks the live connections of one channel and handles fan-out.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Conn),
	}
}

// Add registers a live connection.
func (r *Registry) Add(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.ID()] = conn
}

// Remove deregisters a connection. Removing a connection that is already
// gone is a no-op: a failed send and an explicit close may race to remove
// the same peer.
func (r *Registry) Remove(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, conn.ID())
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Snapshot returns the current connections for iteration decoupled from
// concurrent Add/Remove calls.
func (r *Registry) Snapshot() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]Conn, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Broadcast delivers data to every registered connection except exclude
// (pass nil to reach everyone). Delivery is fire-and-forget per peer: a
// failed send evicts that peer and the broadcast moves on.
func (r *Registry) Broadcast(data []byte, exclude Conn) {
	for _, conn := range r.Snapshot() {
		if exclude != nil && conn.ID() == exclude.ID() {
			continue
		}
		if err := conn.Send(data); err != nil {
			log.Printf("Failed to send to %s, dropping connection: %v", conn.RemoteAddr(), err)
			r.Remove(conn)
		}
	}
}
