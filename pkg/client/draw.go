package client

import (
	"encoding/json"
	"fmt"
	"sync"

	"pixelboard/pkg/protocol"
)

// DrawClient talks to the draw channel. The canvas replay received on join
// is delivered once on Init; pixels painted by other clients arrive on
// Pixels in broadcast order.
type DrawClient struct {
	address string
	init    chan []protocol.Pixel
	pixels  chan protocol.Pixel
	errors  chan string

	mu   sync.Mutex
	conn transportConn
	wg   sync.WaitGroup
}

// NewDrawClient creates a client for the given server address.
func NewDrawClient(address string) *DrawClient {
	return &DrawClient{
		address: address,
		init:    make(chan []protocol.Pixel, 1),
		pixels:  make(chan protocol.Pixel, 64),
		errors:  make(chan string, 4),
	}
}

// Connect establishes the connection and starts receiving events.
func (d *DrawClient) Connect() error {
	conn, err := dial(d.address)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.conn = conn
	d.mu.Unlock()

	d.wg.Add(1)
	go d.receive(conn)
	return nil
}

// Disconnect closes the connection.
func (d *DrawClient) Disconnect() {
	d.mu.Lock()
	conn := d.conn
	d.conn = nil
	d.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	d.wg.Wait()
}

// AddPixel paints one pixel. The server does not echo it back; the caller
// has already rendered it locally.
func (d *DrawClient) AddPixel(p protocol.Pixel) error {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	data, err := protocol.Encode(protocol.TypeAddPixel, p)
	if err != nil {
		return err
	}
	return conn.WriteFrame(data)
}

// Init delivers the canvas history replayed by the server on join.
func (d *DrawClient) Init() <-chan []protocol.Pixel {
	return d.init
}

// Pixels returns the stream of pixels painted by other clients.
func (d *DrawClient) Pixels() <-chan protocol.Pixel {
	return d.pixels
}

// Errors returns the stream of server error replies.
func (d *DrawClient) Errors() <-chan string {
	return d.errors
}

func (d *DrawClient) receive(conn transportConn) {
	defer d.wg.Done()
	defer close(d.init)
	defer close(d.pixels)
	defer close(d.errors)

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
			d.errors <- errText
			continue
		}

		switch reply.Type {
		case protocol.TypeInitPixels:
			var history []protocol.Pixel
			if err := json.Unmarshal(reply.Payload, &history); err != nil {
				continue
			}
			d.init <- history
		case protocol.TypeNewPixel:
			var p protocol.Pixel
			if err := json.Unmarshal(reply.Payload, &p); err != nil {
				continue
			}
			d.pixels <- p
		}
	}
}
