package store

import (
	"testing"

	"github.com/nielsole/ppe_tile/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureRecord(t *testing.T) {
	in := renderer.Feature{
		PPE:         3.25,
		Location:    renderer.Point{Lon: -74.006, Lat: 40.7128},
		AggregateID: renderer.GenerateAggregateID(-74.006, 40.7128),
		Timestamp:   1700000000000,
	}
	data, err := encodeFeature(in)
	require.NoError(t, err)
	assert.Len(t, data, featureRecordSize)

	var out renderer.Feature
	require.NoError(t, decodeFeature(data, &out))
	assert.Equal(t, in, out)
}

func TestFeatureRecordTruncated(t *testing.T) {
	var out renderer.Feature
	assert.Error(t, decodeFeature(make([]byte, featureRecordSize-1), &out))
}

func TestSequenceKeysSortInOrder(t *testing.T) {
	assert.Less(t, string(itob(9)), string(itob(10)))
	assert.Equal(t, uint64(300), btoi(itob(300)))
}
