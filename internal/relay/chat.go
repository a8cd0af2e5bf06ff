package relay

import (
	"fmt"
	"log"
	"sync"

	"pixelboard/pkg/protocol"
)

// DefaultUsername is attributed to messages sent before SET_USERNAME.
const DefaultUsername = "Anonymous"

// ChatChannel tracks participants and broadcasts chat messages to every
// connected peer, the sender included. Clients render from the server echo,
// not from a local copy.
type ChatChannel struct {
	registry *Registry

	mu    sync.Mutex
	names map[string]string // connection ID -> display name
}

// NewChatChannel creates a ChatChannel with an empty participant set.
func NewChatChannel() *ChatChannel {
	return &ChatChannel{
		registry: NewRegistry(),
		names:    make(map[string]string),
	}
}

// Registry exposes the channel's connection registry.
func (c *ChatChannel) Registry() *Registry {
	return c.registry
}

// OnConnect registers the connection with the default display name. Chat has
// no history, so nothing is replayed.
func (c *ChatChannel) OnConnect(conn Conn) {
	c.mu.Lock()
	c.names[conn.ID()] = DefaultUsername
	c.mu.Unlock()
	c.registry.Add(conn)
	log.Printf("Chat client connected from %s", conn.RemoteAddr())
	log.Printf("Total chat connections: %d", c.registry.Len())
}

// OnMessage handles one inbound frame from conn.
func (c *ChatChannel) OnMessage(conn Conn, data []byte) {
	env, err := protocol.DecodeEnvelope(data)
	if err != nil {
		c.reject(conn, err)
		return
	}

	switch env.Type {
	case protocol.TypeSetUsername:
		name, err := env.Text()
		if err != nil {
			c.reject(conn, err)
			return
		}
		c.mu.Lock()
		c.names[conn.ID()] = name
		c.mu.Unlock()

	case protocol.TypeSendMessage:
		text, err := env.Text()
		if err != nil {
			c.reject(conn, err)
			return
		}
		c.mu.Lock()
		username, ok := c.names[conn.ID()]
		c.mu.Unlock()
		if !ok {
			username = DefaultUsername
		}
		out, err := protocol.NewMessage(username, text)
		if err != nil {
			c.reject(conn, err)
			return
		}
		c.registry.Broadcast(out, nil)

	default:
		c.reject(conn, fmt.Errorf("unknown message type %q", env.Type))
	}
}

// OnDisconnect removes the connection and discards its participant state.
func (c *ChatChannel) OnDisconnect(conn Conn) {
	c.registry.Remove(conn)
	c.mu.Lock()
	delete(c.names, conn.ID())
	c.mu.Unlock()
	log.Printf("Chat client disconnected from %s", conn.RemoteAddr())
	log.Printf("Total chat connections: %d", c.registry.Len())
}

// Username returns the current display name of a connection.
func (c *ChatChannel) Username(conn Conn) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.names[conn.ID()]; ok {
		return name
	}
	return DefaultUsername
}

// reject answers malformed input with the chat error reply. The connection
// stays open; one peer's bad frame never affects the others.
func (c *ChatChannel) reject(conn Conn, err error) {
	log.Printf("Rejected chat message from %s: %v", conn.RemoteAddr(), err)
	if err := conn.Send(protocol.EncodeError(protocol.ErrInvalidMessage)); err != nil {
		c.registry.Remove(conn)
	}
}
