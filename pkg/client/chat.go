package client

import (
	"encoding/json"
	"fmt"
	"sync"

	"pixelboard/pkg/protocol"
)

// ChatClient talks to the chat channel. Incoming broadcasts are delivered on
// Messages, server error replies on Errors.
type ChatClient struct {
	address  string
	messages chan protocol.ChatMessage
	errors   chan string

	mu   sync.Mutex
	conn transportConn
	wg   sync.WaitGroup
}

// NewChatClient creates a client for the given server address.
func NewChatClient(address string) *ChatClient {
	return &ChatClient{
		address:  address,
		messages: make(chan protocol.ChatMessage, 16),
		errors:   make(chan string, 4),
	}
}

// Connect establishes the connection and starts receiving broadcasts.
func (c *ChatClient) Connect() error {
	conn, err := dial(c.address)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.wg.Add(1)
	go c.receive(conn)
	return nil
}

// Disconnect closes the connection. Messages and Errors are closed once the
// receive loop drains.
func (c *ChatClient) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.wg.Wait()
}

// SetUsername sets the display name attributed to future messages.
func (c *ChatClient) SetUsername(name string) error {
	return c.send(protocol.TypeSetUsername, name)
}

// Send sends a chat message. The server echoes it back on Messages with the
// current display name attached.
func (c *ChatClient) Send(text string) error {
	return c.send(protocol.TypeSendMessage, text)
}

// Messages returns the stream of chat broadcasts.
func (c *ChatClient) Messages() <-chan protocol.ChatMessage {
	return c.messages
}

// Errors returns the stream of server error replies.
func (c *ChatClient) Errors() <-chan string {
	return c.errors
}

func (c *ChatClient) send(msgType string, payload any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	data, err := protocol.Encode(msgType, payload)
	if err != nil {
		return err
	}
	return conn.WriteFrame(data)
}

func (c *ChatClient) receive(conn transportConn) {
	defer c.wg.Done()
	defer close(c.messages)
	defer close(c.errors)

	for {
		data, err := conn.ReadFrame()
		if err != nil {
			return
		}

		reply, errText, err := decodeServerFrame(data)
		if err != nil {
			continue
		}
		if errText != "" {
			c.errors <- errText
			continue
		}
		if reply.Type != protocol.TypeNewMessage {
			continue
		}
		var msg protocol.ChatMessage
		if err := json.Unmarshal(reply.Payload, &msg); err != nil {
			continue
		}
		c.messages <- msg
	}
}

// serverFrame covers both shapes the server sends: a typed envelope or a
// bare error reply.
type serverFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error"`
}

func decodeServerFrame(data []byte) (protocol.Envelope, string, error) {
	var frame serverFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return protocol.Envelope{}, "", err
	}
	if frame.Error != "" {
		return protocol.Envelope{}, frame.Error, nil
	}
	return protocol.Envelope{Type: frame.Type, Payload: frame.Payload}, "", nil
}
