package client_test

import (
	"testing"

	"pixelboard/pkg/client"
	"pixelboard/pkg/protocol"
)

func TestChatClient_UnsupportedScheme(t *testing.T) {
	c := client.NewChatClient("ftp://localhost:8000")
	if err := c.Connect(); err == nil {
		t.Error("Connect() with ftp scheme returned nil error")
	}
}

func TestChatClient_SendBeforeConnect(t *testing.T) {
	c := client.NewChatClient("ws://localhost:8000/chat")
	if err := c.Send("hi"); err == nil {
		t.Error("Send() before Connect() returned nil error")
	}
	if err := c.SetUsername("x"); err == nil {
		t.Error("SetUsername() before Connect() returned nil error")
	}
}

func TestDrawClient_AddPixelBeforeConnect(t *testing.T) {
	c := client.NewDrawClient("ws://localhost:8000/draw")
	if err := c.AddPixel(protocol.Pixel{X: 1, Y: 1, Color: "#fff"}); err == nil {
		t.Error("AddPixel() before Connect() returned nil error")
	}
}

func TestDrawClient_ConnectFailure(t *testing.T) {
	c := client.NewDrawClient("tcp://127.0.0.1:1") // nothing listens here
	if err := c.Connect(); err == nil {
		c.Disconnect()
		t.Error("Connect() to a closed port returned nil error")
	}
}
