package relay

import (
	"fmt"
	"log"
	"sync"

	"pixelboard/pkg/protocol"
)

// DrawChannel maintains the shared canvas: the ordered list of every pixel
// ever painted. New joiners get the full history replayed; new paints are
// broadcast to everyone except the originator, which has already rendered
// the pixel locally.
type DrawChannel struct {
	registry *Registry

	// mu orders canvas mutations against join snapshots, so the replay a
	// late joiner receives is always a prefix of the broadcast order seen
	// by everyone else.
	mu     sync.Mutex
	pixels []protocol.Pixel
}

// NewDrawChannel creates a DrawChannel with an empty canvas.
func NewDrawChannel() *DrawChannel {
	return &DrawChannel{
		registry: NewRegistry(),
	}
}

// Registry exposes the channel's connection registry.
func (d *DrawChannel) Registry() *Registry {
	return d.registry
}

// Pixels returns a copy of the canvas history in arrival order.
func (d *DrawChannel) Pixels() []protocol.Pixel {
	d.mu.Lock()
	defer d.mu.Unlock()
	pixels := make([]protocol.Pixel, len(d.pixels))
	copy(pixels, d.pixels)
	return pixels
}

// OnConnect registers the connection and replays the full canvas history to
// it. Registration and the history snapshot happen under the canvas lock so
// the new joiner misses no pixel: everything painted before the snapshot is
// in INIT_PIXELS, everything after arrives as NEW_PIXEL broadcasts.
func (d *DrawChannel) OnConnect(conn Conn) {
	d.mu.Lock()
	init, err := protocol.InitPixels(d.pixels)
	d.registry.Add(conn)
	if err == nil {
		// Enqueued under the lock, so no concurrent paint can slip a
		// NEW_PIXEL in front of the replay.
		if sendErr := conn.Send(init); sendErr != nil {
			d.registry.Remove(conn)
		}
	}
	d.mu.Unlock()

	if err != nil {
		log.Printf("Failed to encode canvas history: %v", err)
	}
	log.Printf("Drawing client connected from %s", conn.RemoteAddr())
	log.Printf("Total drawing connections: %d", d.registry.Len())
}

// OnMessage handles one inbound frame from conn.
func (d *DrawChannel) OnMessage(conn Conn, data []byte) {
	env, err := protocol.DecodeEnvelope(data)
	if err != nil {
		d.reject(conn, err)
		return
	}
	if env.Type != protocol.TypeAddPixel {
		d.reject(conn, fmt.Errorf("unknown message type %q", env.Type))
		return
	}

	pixel, err := env.Pixel()
	if err != nil {
		d.reject(conn, err)
		return
	}
	out, err := protocol.NewPixel(pixel)
	if err != nil {
		d.reject(conn, err)
		return
	}

	// Append and broadcast as one step, so no pixel is broadcast before it
	// is part of the history a concurrent joiner would be replayed.
	d.mu.Lock()
	d.pixels = append(d.pixels, pixel)
	d.registry.Broadcast(out, conn)
	d.mu.Unlock()
}

// OnDisconnect removes the connection. The canvas is process-global and is
// unaffected by peers leaving.
func (d *DrawChannel) OnDisconnect(conn Conn) {
	d.registry.Remove(conn)
	log.Printf("Drawing client disconnected from %s", conn.RemoteAddr())
	log.Printf("Total drawing connections: %d", d.registry.Len())
}

// reject answers malformed input with the draw error reply and leaves the
// canvas untouched.
func (d *DrawChannel) reject(conn Conn, err error) {
	log.Printf("Rejected draw message from %s: %v", conn.RemoteAddr(), err)
	if err := conn.Send(protocol.EncodeError(protocol.ErrInvalidFormat)); err != nil {
		d.registry.Remove(conn)
	}
}
