package renderer

import "github.com/paulmach/orb"

type Tile struct {
	X, Y, Z uint32
}

type Point struct {
	Lon, Lat float64
}

type BoundingBox struct {
	Min, Max Point
}

type Pixel struct {
	X, Y float64
}

// Feature is a single PPE measurement. AggregateID is derived from Location
// when the feature is ingested and never changes afterwards.
type Feature struct {
	PPE         float64
	Location    Point
	AggregateID int64
	// Timestamp in milliseconds since the epoch. Not used for rendering.
	Timestamp int64
}

// member function checks if a point is inside a bounding box
func (bbox BoundingBox) Contains(point Point) bool {
	return point.Lat >= bbox.Min.Lat && point.Lat <= bbox.Max.Lat && point.Lon >= bbox.Min.Lon && point.Lon <= bbox.Max.Lon
}

func (bbox BoundingBox) center() Point {
	return Point{(bbox.Min.Lon + bbox.Max.Lon) / 2, (bbox.Min.Lat + bbox.Max.Lat) / 2}
}

// West, South, East and North name the edges the way tile clients do.
func (bbox BoundingBox) West() float64  { return bbox.Min.Lon }
func (bbox BoundingBox) South() float64 { return bbox.Min.Lat }
func (bbox BoundingBox) East() float64  { return bbox.Max.Lon }
func (bbox BoundingBox) North() float64 { return bbox.Max.Lat }

func boundingBoxFromBound(b orb.Bound) BoundingBox {
	return BoundingBox{
		Min: Point{b.Left(), b.Bottom()},
		Max: Point{b.Right(), b.Top()},
	}
}

// NewBoundingBox builds a box from west, south, east, north.
func NewBoundingBox(west, south, east, north float64) BoundingBox {
	return BoundingBox{Point{west, south}, Point{east, north}}
}
