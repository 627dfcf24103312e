package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/nielsole/ppe_tile/renderer"
)

// ErrInvalidTile is returned for tile addresses the server does not render.
var ErrInvalidTile = errors.New("invalid tile address")

var pathMatcher = regexp.MustCompile(`^/?tiles/([0-9]+)/([0-9]+)/([0-9]+)\.png$`)

// ParsePath parses a tile path of the form /tiles/{z}/{x}/{y}.png.
func ParsePath(path string, minZoom, maxZoom uint32) (renderer.Tile, error) {
	matches := pathMatcher.FindStringSubmatch(path)
	if len(matches) != 4 {
		return renderer.Tile{}, fmt.Errorf("%w: could not match path %q", ErrInvalidTile, path)
	}
	return ParseTileAddress(matches[1], matches[2], matches[3], minZoom, maxZoom)
}

// ParseTileAddress parses decimal z, x and y and checks that the zoom is in
// [minZoom, maxZoom] and x and y are inside the grid of that zoom.
func ParseTileAddress(z, x, y string, minZoom, maxZoom uint32) (renderer.Tile, error) {
	zoom, err := parseUint(z, "zoom")
	if err != nil {
		return renderer.Tile{}, err
	}
	tileX, err := parseUint(x, "x")
	if err != nil {
		return renderer.Tile{}, err
	}
	tileY, err := parseUint(y, "y")
	if err != nil {
		return renderer.Tile{}, err
	}
	tile := renderer.Tile{X: tileX, Y: tileY, Z: zoom}
	if err := ValidateTile(tile, minZoom, maxZoom); err != nil {
		return renderer.Tile{}, err
	}
	return tile, nil
}

// ValidateTile checks that the zoom is in [minZoom, maxZoom] and x and y are
// inside the grid of that zoom.
func ValidateTile(tile renderer.Tile, minZoom, maxZoom uint32) error {
	if tile.Z < minZoom || tile.Z > maxZoom {
		return fmt.Errorf("%w: zoom %d outside [%d, %d]", ErrInvalidTile, tile.Z, minZoom, maxZoom)
	}
	n := uint64(1) << tile.Z
	if uint64(tile.X) >= n || uint64(tile.Y) >= n {
		return fmt.Errorf("%w: %d/%d/%d is outside the grid", ErrInvalidTile, tile.Z, tile.X, tile.Y)
	}
	return nil
}

func parseUint(s, name string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrInvalidTile, name, s)
	}
	return uint32(v), nil
}
