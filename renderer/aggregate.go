package renderer

import "math"

// Weights and seed of the aggregate id. Stored ids were computed with these
// values, changing any of them invalidates every persisted feature.
const (
	aggregateLonWeight = 31
	aggregateLatWeight = 17

	DefaultAggregateSeed = 1_000_000
)

// GenerateAggregateID derives the decimation key of a coordinate. Nearby
// points only tend to get close ids; this is not a spatial index.
func GenerateAggregateID(lon, lat float64) int64 {
	return GenerateAggregateIDWithSeed(lon, lat, DefaultAggregateSeed)
}

func GenerateAggregateIDWithSeed(lon, lat float64, seed float64) int64 {
	normalizedLon := (lon + 180) / 360
	normalizedLat := (lat + 90) / 180
	return int64(math.Floor((normalizedLon*aggregateLonWeight + normalizedLat*aggregateLatWeight) * seed))
}
