package renderer

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many tiles are rasterized at the same time, so a burst of
// requests cannot allocate an unbounded number of canvases.
type Pool struct {
	rasterizer *Rasterizer
	slots      *semaphore.Weighted
}

// NewPool returns a pool with the given number of workers, or one per CPU if
// workers is not positive.
func NewPool(workers int, rasterizer *Rasterizer) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		rasterizer: rasterizer,
		slots:      semaphore.NewWeighted(int64(workers)),
	}
}

// Render waits for a free worker and renders the tile. It returns ctx.Err()
// if the context ends while waiting.
func (p *Pool) Render(ctx context.Context, zoom uint32, bbox BoundingBox, features []Feature) ([]byte, error) {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.slots.Release(1)
	return p.rasterizer.Render(ctx, zoom, bbox, features)
}
