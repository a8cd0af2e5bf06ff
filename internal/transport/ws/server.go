package ws

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"pixelboard/internal/relay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Cross-origin policy is the proxy's concern.
	},
}

// Handler returns an HTTP handler that upgrades the request and hands the
// connection to channel for the rest of its life.
func Handler(channel relay.Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		socket, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Failed to upgrade connection: %v", err)
			return
		}

		conn := NewConn(socket)
		channel.OnConnect(conn)
		go conn.writeLoop()
		readLoop(conn, channel)
	}
}

// readLoop feeds inbound frames to the channel in arrival order. Any read
// error means the transport is gone; the channel is told once and the
// connection is closed.
func readLoop(conn *Conn, channel relay.Channel) {
	defer func() {
		channel.OnDisconnect(conn)
		conn.Close()
	}()

	for {
		msgType, data, err := conn.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		channel.OnMessage(conn, data)
	}
}
