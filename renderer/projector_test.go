package renderer

import (
	"math"
	"testing"
)

const pixelTolerance = 1e-6

func TestNum2Deg(t *testing.T) {
	// The center of Hamburg
	tile := Tile{
		X: 138346,
		Y: 84715,
		Z: 18,
	}
	bbox := TileToBoundingBox(tile)
	got := LonLatToTile(bbox.center(), 18)
	if got.X != tile.X {
		t.Errorf("X should be %v, but is %v", tile.X, got.X)
	}
	if got.Y != tile.Y {
		t.Errorf("Y should be %v, but is %v", tile.Y, got.Y)
	}
}

// Test to check bounding box
func TestBoundingBox(t *testing.T) {
	p := Point{10.068140300000001, 53.6577386}
	tile := Tile{
		X: 138403,
		Y: 84591,
		Z: 18,
	}
	bbox := TileToBoundingBox(tile)
	if !bbox.Contains(p) {
		t.Errorf("Point %v is not in bounding box %v", p, bbox)
	}
}

func TestTileToBoundingBoxMatchesMercatorFormula(t *testing.T) {
	tile := Tile{X: 1205, Y: 1539, Z: 12}
	n := math.Pow(2.0, float64(tile.Z))
	west := float64(tile.X)/n*360.0 - 180.0
	east := float64(tile.X+1)/n*360.0 - 180.0
	north := math.Atan(math.Sinh(math.Pi*(1-2*float64(tile.Y)/n))) * 180.0 / math.Pi
	south := math.Atan(math.Sinh(math.Pi*(1-2*float64(tile.Y+1)/n))) * 180.0 / math.Pi

	bbox := TileToBoundingBox(tile)
	for _, c := range []struct {
		name      string
		want, got float64
	}{
		{"west", west, bbox.West()},
		{"south", south, bbox.South()},
		{"east", east, bbox.East()},
		{"north", north, bbox.North()},
	} {
		if math.Abs(c.want-c.got) > 1e-9 {
			t.Errorf("%s should be %v, but is %v", c.name, c.want, c.got)
		}
	}
}

func TestBoundingBoxRoundTrip(t *testing.T) {
	tile := Tile{X: 1205, Y: 1539, Z: 12}
	bbox := TileToBoundingBox(tile)
	if !(bbox.West() < bbox.East()) {
		t.Errorf("west %v should be less than east %v", bbox.West(), bbox.East())
	}
	if !(bbox.South() < bbox.North()) {
		t.Errorf("south %v should be less than north %v", bbox.South(), bbox.North())
	}

	origin := TileOrigin(tile)
	topLeft := LonLatToPixel(Point{bbox.West(), bbox.North()}, tile.Z)
	if math.Abs(topLeft.X-origin.X) > pixelTolerance || math.Abs(topLeft.Y-origin.Y) > pixelTolerance {
		t.Errorf("north-west corner should project to %v, but is %v", origin, topLeft)
	}

	// The south-west corner is the tile's bottom-left anchor.
	bottomLeft := LonLatToPixel(Point{bbox.West(), bbox.South()}, tile.Z)
	if math.Abs(bottomLeft.X-origin.X) > pixelTolerance || math.Abs(bottomLeft.Y-(origin.Y+TileSize)) > pixelTolerance {
		t.Errorf("south-west corner should project to (%v, %v), but is %v", origin.X, origin.Y+TileSize, bottomLeft)
	}

	anchor := boundingBoxOrigin(bbox, tile.Z)
	if math.Abs(anchor.X-origin.X) > pixelTolerance || math.Abs(anchor.Y-origin.Y) > pixelTolerance {
		t.Errorf("bounding box origin should be %v, but is %v", origin, anchor)
	}
}

func TestLonLatToPixelWorldCorners(t *testing.T) {
	p := LonLatToPixel(Point{0, 0}, 0)
	if math.Abs(p.X-128) > pixelTolerance || math.Abs(p.Y-128) > pixelTolerance {
		t.Errorf("null island should be at (128, 128) at zoom 0, but is %v", p)
	}
	p = LonLatToPixel(Point{-180, 0}, 3)
	if math.Abs(p.X) > pixelTolerance {
		t.Errorf("antimeridian should be at x=0, but is %v", p.X)
	}
}

func TestLonLatToTileClampsToGrid(t *testing.T) {
	cases := []struct {
		point Point
		want  Tile
	}{
		{Point{Lon: 180, Lat: 90}, Tile{X: 3, Y: 0, Z: 2}},
		{Point{Lon: -180, Lat: -89.9}, Tile{X: 0, Y: 3, Z: 2}},
		{Point{Lon: 0, Lat: 0}, Tile{X: 2, Y: 2, Z: 2}},
	}
	for _, c := range cases {
		if got := LonLatToTile(c.point, 2); got != c.want {
			t.Errorf("LonLatToTile(%v) should be %v, but is %v", c.point, c.want, got)
		}
	}
}
