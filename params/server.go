package params

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nielsole/ppe_tile/renderer"
)

var DefaultDataPath = filepath.Join("data", "features.db")

type ServerConfig struct {
	// Address is the HTTP listen address, eg. ":8080".
	Address  string
	DataPath string

	// Tiles outside [MinZoom, MaxZoom] are rejected. The same bounds drive
	// the resolution filter.
	MinZoom uint32
	MaxZoom uint32

	MarkerRadius float64

	// RenderWorkers caps concurrent rasterization; zero means one per CPU.
	RenderWorkers int

	// DedupeCacheSize is how many recent submissions are remembered to drop
	// duplicates. Zero disables deduplication.
	DedupeCacheSize int

	// Token guards feature ingestion. Empty allows everyone.
	Token string

	ShutdownTimeout time.Duration
}

func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:         ":8080",
		DataPath:        DefaultDataPath,
		MinZoom:         renderer.DefaultMinZoom,
		MaxZoom:         renderer.DefaultMaxZoom,
		MarkerRadius:    renderer.DefaultMarkerRadius,
		RenderWorkers:   0,
		DedupeCacheSize: 10_000,
		ShutdownTimeout: 10 * time.Second,
	}
}

func (c *ServerConfig) ResolutionFilter() renderer.ResolutionFilter {
	return renderer.ResolutionFilter{MinZoom: c.MinZoom, MaxZoom: c.MaxZoom}
}

// Zoom levels beyond this overflow the resolution factor.
const maxSupportedZoom = 30

func (c *ServerConfig) Validate() error {
	if c.MinZoom > c.MaxZoom {
		return fmt.Errorf("min zoom %d is greater than max zoom %d", c.MinZoom, c.MaxZoom)
	}
	if c.MaxZoom > maxSupportedZoom {
		return fmt.Errorf("max zoom %d exceeds %d", c.MaxZoom, maxSupportedZoom)
	}
	if c.MarkerRadius <= 0 {
		return errors.New("marker radius must be positive")
	}
	if c.DedupeCacheSize < 0 {
		return errors.New("dedupe cache size must not be negative")
	}
	return nil
}
