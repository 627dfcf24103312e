package renderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"git.sr.ht/~sbinet/gg"
)

// DefaultMarkerRadius is the radius of a feature marker in pixels.
const DefaultMarkerRadius = 4

// ErrRender is returned when a tile could not be drawn or encoded.
var ErrRender = errors.New("render tile")

// how many features are drawn between context checks
const cancelCheckInterval = 1024

type Rasterizer struct {
	Radius float64
}

func NewRasterizer(radius float64) *Rasterizer {
	if radius <= 0 {
		radius = DefaultMarkerRadius
	}
	return &Rasterizer{Radius: radius}
}

// Render draws one marker per feature onto a transparent tile and returns the
// PNG bytes. Features are drawn in order, later ones paint over earlier ones.
// Filtering by zoom and bounding box is the caller's job.
func (r *Rasterizer) Render(ctx context.Context, zoom uint32, bbox BoundingBox, features []Feature) ([]byte, error) {
	const S = TileSize
	dc := gg.NewContext(S, S)

	origin := boundingBoxOrigin(bbox, zoom)
	for i, feature := range features {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		pixel := LonLatToPixel(feature.Location, zoom)
		dc.SetColor(PPEColor(feature.PPE))
		dc.DrawCircle(pixel.X-origin.X, pixel.Y-origin.Y, r.Radius)
		dc.Fill()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return buf.Bytes(), nil
}
