package renderer

import (
	"math"

	"github.com/paulmach/orb/maptile"
)

// TileSize is the edge length of a rendered tile in pixels.
const TileSize = 256

// TileToBoundingBox returns the geographic extent of a slippy-map tile.
func TileToBoundingBox(tile Tile) BoundingBox {
	return boundingBoxFromBound(maptile.New(tile.X, tile.Y, maptile.Zoom(tile.Z)).Bound())
}

func worldSize(zoom uint32) float64 {
	return TileSize * math.Exp2(float64(zoom))
}

// LonLatToPixel projects a coordinate into absolute pixel space at the given
// zoom. The origin is the north-west corner of the world, y grows southward.
// Coordinates outside the mercator range produce unspecified values.
func LonLatToPixel(point Point, zoom uint32) Pixel {
	latRad := math.Pi * point.Lat / 180.0
	size := worldSize(zoom)
	return Pixel{
		X: (point.Lon + 180.0) / 360.0 * size,
		Y: (1.0 - math.Log(math.Tan(latRad)+(1/math.Cos(latRad)))/math.Pi) / 2.0 * size,
	}
}

// TileOrigin is the absolute pixel position of the tile's top-left corner.
func TileOrigin(tile Tile) Pixel {
	return Pixel{float64(tile.X) * TileSize, float64(tile.Y) * TileSize}
}

// boundingBoxOrigin anchors a bounding box in pixel space: x from the south-west
// corner, y from the north-east corner.
func boundingBoxOrigin(bbox BoundingBox, zoom uint32) Pixel {
	sw := LonLatToPixel(bbox.Min, zoom)
	ne := LonLatToPixel(bbox.Max, zoom)
	return Pixel{sw.X, ne.Y}
}

// Given a latitude, longitude and zoom level, return the tile coordinates
func LonLatToTile(point Point, zoom uint32) Tile {
	px := LonLatToPixel(point, zoom)
	n := float64(uint64(1) << zoom)
	return Tile{
		X: uint32(clampTileIndex(math.Floor(px.X/TileSize), n)),
		Y: uint32(clampTileIndex(math.Floor(px.Y/TileSize), n)),
		Z: zoom,
	}
}

// Points on the east edge or beyond the Mercator latitude limit still
// belong to the last tile of the grid.
func clampTileIndex(v, n float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > n-1 {
		return n - 1
	}
	return v
}
