// Package protocol defines the JSON wire contract shared by the server and
// its clients. Every frame on the wire is an Envelope: a type tag plus a
// payload whose shape depends on the tag.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Message type tags.
const (
	TypeSetUsername = "SET_USERNAME"
	TypeSendMessage = "SEND_MESSAGE"
	TypeNewMessage  = "NEW_MESSAGE"
	TypeAddPixel    = "ADD_PIXEL"
	TypeInitPixels  = "INIT_PIXELS"
	TypeNewPixel    = "NEW_PIXEL"
)

// Error reply bodies. The chat and draw channels answer malformed input with
// different strings, matching what their clients expect.
const (
	ErrInvalidMessage = "Invalid message"
	ErrInvalidFormat  = "Invalid message format"
)

// Envelope is the wire frame wrapping every event. Payload is kept raw so the
// receiver can pick the variant decoder after reading Type.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Pixel is one paint action at a canvas coordinate.
type Pixel struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color"`
}

// ChatMessage is an outbound chat broadcast. The server fills Username from
// the sender's current display name; clients only ever send the text.
type ChatMessage struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

// ErrorReply is sent to a single peer when its input could not be handled.
type ErrorReply struct {
	Error string `json:"error"`
}

// DecodeEnvelope parses a wire frame. A frame without a type tag is rejected
// here so handlers never have to consider the empty tag.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("envelope has no type tag")
	}
	return env, nil
}

// Text decodes the payload as a JSON string, the variant used by
// SET_USERNAME and SEND_MESSAGE. A null payload is rejected: unmarshalling
// null into a string succeeds without touching it.
func (e Envelope) Text() (string, error) {
	if string(e.Payload) == "null" {
		return "", fmt.Errorf("payload of %s is null", e.Type)
	}
	var s string
	if err := json.Unmarshal(e.Payload, &s); err != nil {
		return "", fmt.Errorf("payload of %s is not a string: %w", e.Type, err)
	}
	return s, nil
}

// Pixel decodes the payload as a Pixel, the variant used by ADD_PIXEL.
// Coordinates must be non-negative and the color must be present.
func (e Envelope) Pixel() (Pixel, error) {
	var p Pixel
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return Pixel{}, fmt.Errorf("payload of %s is not a pixel: %w", e.Type, err)
	}
	if p.X < 0 || p.Y < 0 {
		return Pixel{}, fmt.Errorf("pixel coordinates out of range: (%d, %d)", p.X, p.Y)
	}
	if p.Color == "" {
		return Pixel{}, fmt.Errorf("pixel has no color")
	}
	return p, nil
}

// Encode marshals an envelope with the given tag and payload.
func Encode(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s envelope: %w", msgType, err)
	}
	return data, nil
}

// EncodeError marshals a single-recipient error reply.
func EncodeError(text string) []byte {
	data, _ := json.Marshal(ErrorReply{Error: text})
	return data
}

// NewMessage builds the NEW_MESSAGE broadcast frame.
func NewMessage(username, text string) ([]byte, error) {
	return Encode(TypeNewMessage, ChatMessage{Username: username, Text: text})
}

// NewPixel builds the NEW_PIXEL broadcast frame.
func NewPixel(p Pixel) ([]byte, error) {
	return Encode(TypeNewPixel, p)
}

// InitPixels builds the INIT_PIXELS replay frame. A nil history is encoded
// as an empty array so new joiners always receive a list.
func InitPixels(pixels []Pixel) ([]byte, error) {
	if pixels == nil {
		pixels = []Pixel{}
	}
	return Encode(TypeInitPixels, pixels)
}
