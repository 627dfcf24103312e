package renderer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRendersConcurrently(t *testing.T) {
	pool := NewPool(2, NewRasterizer(DefaultMarkerRadius))
	want, err := NewRasterizer(DefaultMarkerRadius).Render(context.Background(), 12, manhattan, manhattanFeatures)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = pool.Render(context.Background(), 12, manhattan, manhattanFeatures)
		}(i)
	}
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, want, results[i])
	}
}

func TestPoolRespectsContextWhileWaiting(t *testing.T) {
	pool := NewPool(1, NewRasterizer(DefaultMarkerRadius))
	// Occupy the only slot.
	require.NoError(t, pool.slots.Acquire(context.Background(), 1))
	defer pool.slots.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := pool.Render(ctx, 12, manhattan, manhattanFeatures)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
