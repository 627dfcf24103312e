package ingest

import (
	"context"
	"io"
	"runtime"
	"strconv"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
)

// ppeTag is the OSM node tag carrying the measurement.
const ppeTag = "ppe"

// ReadOSM scans an .osm.pbf extract for nodes tagged with a numeric ppe value
// and calls fn for each valid one. Tagged nodes with an unparsable or out of
// range value are skipped and counted.
func ReadOSM(ctx context.Context, r io.Reader, fn func(Submission) error) (skipped int, err error) {
	// The third parameter is the number of parallel decoders to use.
	scanner := osmpbf.New(ctx, r, runtime.GOMAXPROCS(-1))
	scanner.SkipWays = true
	scanner.SkipRelations = true
	defer scanner.Close()

	for scanner.Scan() {
		node, ok := scanner.Object().(*osm.Node)
		if !ok || node.Tags.Find(ppeTag) == "" {
			continue
		}
		s, ok := nodeSubmission(node)
		if !ok {
			skipped++
			continue
		}
		if err := fn(s); err != nil {
			return skipped, err
		}
	}
	return skipped, scanner.Err()
}

func nodeSubmission(node *osm.Node) (Submission, bool) {
	value := node.Tags.Find(ppeTag)
	if value == "" {
		return Submission{}, false
	}
	ppe, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return Submission{}, false
	}
	s := Submission{PPE: ppe, Lon: node.Lon, Lat: node.Lat}
	if !node.Timestamp.IsZero() {
		s.Timestamp = node.Timestamp.UnixMilli()
	}
	if Validate(s) != nil {
		return Submission{}, false
	}
	return s, true
}
