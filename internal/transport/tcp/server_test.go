package tcp_test

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"pixelboard/internal/relay"
	"pixelboard/internal/transport/tcp"
	"pixelboard/pkg/client"
	"pixelboard/pkg/protocol"
)

func startServer(t *testing.T, chatChannel *relay.ChatChannel, drawChannel *relay.DrawChannel) string {
	t.Helper()
	srv := tcp.New("127.0.0.1:0", map[string]relay.Channel{
		"/chat": chatChannel,
		"/draw": drawChannel,
	}, chatChannel)

	go func() {
		_ = srv.Start()
	}()
	t.Cleanup(srv.Stop)

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("server did not start in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return srv.Addr()
}

func writeLine(t *testing.T, conn net.Conn, line string) {
	t.Helper()
	if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
		t.Fatalf("failed to write line: %v", err)
	}
}

func readLine(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read line: %v", err)
	}
	return strings.TrimSpace(line)
}

func TestPlainTCPChat(t *testing.T) {
	chatChannel := relay.NewChatChannel()
	addr := startServer(t, chatChannel, relay.NewDrawChannel())

	conn1, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to connect client 1: %v", err)
	}
	defer conn1.Close()
	conn2, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to connect client 2: %v", err)
	}
	defer conn2.Close()

	// The listener only learns a plain TCP client exists once it speaks.
	writeLine(t, conn1, `{"type":"SET_USERNAME","payload":"tcp-user"}`)
	writeLine(t, conn2, `{"type":"SET_USERNAME","payload":"other"}`)
	time.Sleep(100 * time.Millisecond)

	writeLine(t, conn1, `{"type":"SEND_MESSAGE","payload":"over raw tcp"}`)

	conn2.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn2)
	var frame struct {
		Type    string               `json:"type"`
		Payload protocol.ChatMessage `json:"payload"`
	}
	if err := json.Unmarshal([]byte(readLine(t, reader)), &frame); err != nil {
		t.Fatalf("failed to decode broadcast: %v", err)
	}
	if frame.Type != protocol.TypeNewMessage {
		t.Errorf("frame type = %q, want %q", frame.Type, protocol.TypeNewMessage)
	}
	if frame.Payload.Username != "tcp-user" || frame.Payload.Text != "over raw tcp" {
		t.Errorf("message = %+v, want tcp-user/over raw tcp", frame.Payload)
	}
}

func TestPlainTCPMalformedLine(t *testing.T) {
	chatChannel := relay.NewChatChannel()
	addr := startServer(t, chatChannel, relay.NewDrawChannel())

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	writeLine(t, conn, `this is not json`)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	if got := readLine(t, reader); got != `{"error":"Invalid message"}` {
		t.Errorf("reply = %s, want the chat error envelope", got)
	}
}

func TestWebSocketUpgradeOnRawPort(t *testing.T) {
	chatChannel := relay.NewChatChannel()
	drawChannel := relay.NewDrawChannel()
	addr := startServer(t, chatChannel, drawChannel)

	x := client.NewDrawClient("ws://" + addr + "/draw")
	if err := x.Connect(); err != nil {
		t.Fatalf("failed to connect draw client: %v", err)
	}
	t.Cleanup(x.Disconnect)

	select {
	case history := <-x.Init():
		if len(history) != 0 {
			t.Errorf("initial replay = %v, want empty", history)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for canvas replay")
	}

	if err := x.AddPixel(protocol.Pixel{X: 1, Y: 2, Color: "#abcdef"}); err != nil {
		t.Fatalf("failed to paint: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	pixels := drawChannel.Pixels()
	if len(pixels) != 1 || pixels[0] != (protocol.Pixel{X: 1, Y: 2, Color: "#abcdef"}) {
		t.Errorf("canvas = %v, want the painted pixel", pixels)
	}
}

func TestCrossTransportBroadcast(t *testing.T) {
	chatChannel := relay.NewChatChannel()
	addr := startServer(t, chatChannel, relay.NewDrawChannel())

	// One WebSocket client and one plain TCP client on the same port, both
	// on the chat channel.
	wsClient := client.NewChatClient("ws://" + addr + "/chat")
	if err := wsClient.Connect(); err != nil {
		t.Fatalf("failed to connect ws client: %v", err)
	}
	t.Cleanup(wsClient.Disconnect)
	time.Sleep(100 * time.Millisecond)

	rawConn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to connect tcp client: %v", err)
	}
	defer rawConn.Close()

	writeLine(t, rawConn, `{"type":"SET_USERNAME","payload":"raw"}`)
	time.Sleep(100 * time.Millisecond)
	writeLine(t, rawConn, `{"type":"SEND_MESSAGE","payload":"hello ws"}`)

	select {
	case msg := <-wsClient.Messages():
		if msg.Username != "raw" || msg.Text != "hello ws" {
			t.Errorf("message = %+v, want raw/hello ws", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cross-transport broadcast")
	}
}
