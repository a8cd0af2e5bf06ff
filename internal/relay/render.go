package relay

import (
	"bytes"
	"fmt"

	"github.com/fogleman/gg"
)

// maxRenderDim caps each edge of the rendered image. Paint coordinates are
// unbounded, so without a cap a single far-off pixel would make the snapshot
// allocate an arbitrarily large raster.
const maxRenderDim = 4096

// RenderPNG rasterizes the current canvas history to a PNG image. Each
// logical pixel becomes a scale×scale cell. Pixels are drawn in arrival
// order, so repeated paints at one coordinate end up showing the last color,
// the same way clients render the replay.
func (d *DrawChannel) RenderPNG(scale int) ([]byte, error) {
	if scale < 1 {
		return nil, fmt.Errorf("scale must be positive, got %d", scale)
	}

	pixels := d.Pixels()

	width, height := 1, 1
	for _, p := range pixels {
		if p.X+1 > width {
			width = p.X + 1
		}
		if p.Y+1 > height {
			height = p.Y + 1
		}
	}

	// Compare without multiplying so huge coordinates cannot overflow.
	if width > maxRenderDim/scale || height > maxRenderDim/scale {
		return nil, fmt.Errorf("canvas %dx%d at scale %d exceeds the %dpx render limit", width, height, scale, maxRenderDim)
	}

	dc := gg.NewContext(width*scale, height*scale)
	dc.SetHexColor("#ffffff")
	dc.Clear()
	for _, p := range pixels {
		dc.SetHexColor(p.Color)
		dc.DrawRectangle(float64(p.X*scale), float64(p.Y*scale), float64(scale), float64(scale))
		dc.Fill()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode canvas PNG: %w", err)
	}
	return buf.Bytes(), nil
}
