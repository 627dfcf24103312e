package renderer

const (
	DefaultMinZoom uint32 = 1
	DefaultMaxZoom uint32 = 16
)

// ResolutionFilter thins out features at low zoom levels. Each zoom step
// below MaxZoom halves the share of aggregate ids that pass.
type ResolutionFilter struct {
	MinZoom, MaxZoom uint32
}

func DefaultResolutionFilter() ResolutionFilter {
	return ResolutionFilter{MinZoom: DefaultMinZoom, MaxZoom: DefaultMaxZoom}
}

func (f ResolutionFilter) clamp(zoom uint32) uint32 {
	if zoom < f.MinZoom {
		return f.MinZoom
	}
	if zoom > f.MaxZoom {
		return f.MaxZoom
	}
	return zoom
}

// Factor returns 2^(MaxZoom - clamp(zoom)).
func (f ResolutionFilter) Factor(zoom uint32) int64 {
	return int64(1) << (f.MaxZoom - f.clamp(zoom))
}

// Keep reports whether a feature with the given aggregate id is drawn at zoom.
// The result only depends on its arguments, so panning never makes points flicker.
func (f ResolutionFilter) Keep(aggregateID int64, zoom uint32) bool {
	factor := f.Factor(zoom)
	return factor == 1 || aggregateID%factor == 0
}
