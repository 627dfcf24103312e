package store

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/nielsole/ppe_tile/renderer"
)

// ppe, lon, lat as float64 followed by aggregate id and timestamp as int64.
const featureRecordSize = 40

func encodeFeature(f renderer.Feature) ([]byte, error) {
	// Buffer to store binary representation
	buf := bytes.NewBuffer(make([]byte, 0, featureRecordSize))
	for _, v := range []interface{}{f.PPE, f.Location.Lon, f.Location.Lat, f.AggregateID, f.Timestamp} {
		if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeFeature(data []byte, f *renderer.Feature) error {
	if len(data) != featureRecordSize {
		return fmt.Errorf("feature record has %d bytes, expected %d", len(data), featureRecordSize)
	}
	reader := bytes.NewReader(data)
	for _, v := range []interface{}{&f.PPE, &f.Location.Lon, &f.Location.Lat, &f.AggregateID, &f.Timestamp} {
		if err := binary.Read(reader, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
