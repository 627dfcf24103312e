package ingest

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tidwall/gjson"
)

// ErrInvalidFeature is returned for payloads that cannot be decoded or
// contain a feature violating the PPE or coordinate ranges.
var ErrInvalidFeature = errors.New("invalid feature")

// Submission is one feature as sent by a client, before an aggregate id is
// assigned.
type Submission struct {
	PPE float64 `validate:"gte=0,lte=10"`
	Lon float64 `validate:"gte=-180,lte=180"`
	Lat float64 `validate:"gte=-90,lte=90"`
	// Timestamp in ms since the epoch, zero if the client did not send one.
	Timestamp int64 `validate:"gte=0"`
}

type submissionJSON struct {
	PPE       *float64  `json:"ppe"`
	Location  []float64 `json:"location"`
	Timestamp int64     `json:"timestamp"`
}

func (s submissionJSON) submission() (Submission, error) {
	if s.PPE == nil {
		return Submission{}, fmt.Errorf("%w: missing ppe", ErrInvalidFeature)
	}
	if len(s.Location) != 2 {
		return Submission{}, fmt.Errorf("%w: location must be [lon, lat]", ErrInvalidFeature)
	}
	return Submission{PPE: *s.PPE, Lon: s.Location[0], Lat: s.Location[1], Timestamp: s.Timestamp}, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the PPE and coordinate ranges.
func Validate(s Submission) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFeature, err)
	}
	return nil
}

// Decode parses a request body. Clients send either a single
// {"ppe":..,"location":[lon,lat]} object, an array of those, or GeoJSON
// (a Feature or a FeatureCollection of points with a "ppe" property).
func Decode(body []byte) ([]Submission, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidFeature)
	}
	root := gjson.ParseBytes(body)

	var subs []Submission
	var err error
	switch {
	case root.IsObject() && root.Get("type").String() == "FeatureCollection":
		subs, err = decodeFeatureCollection(body)
	case root.IsObject() && root.Get("type").String() == "Feature":
		var f *geojson.Feature
		f, err = geojson.UnmarshalFeature(body)
		if err == nil {
			var s Submission
			s, err = geoJSONSubmission(f)
			subs = []Submission{s}
		}
	case root.IsArray():
		var raw []submissionJSON
		if err = json.Unmarshal(body, &raw); err == nil {
			subs = make([]Submission, 0, len(raw))
			for _, r := range raw {
				s, serr := r.submission()
				if serr != nil {
					return nil, serr
				}
				subs = append(subs, s)
			}
		}
	case root.IsObject():
		var raw submissionJSON
		if err = json.Unmarshal(body, &raw); err == nil {
			var s Submission
			s, err = raw.submission()
			subs = []Submission{s}
		}
	default:
		err = errors.New("expected an object or an array")
	}
	if err != nil {
		if errors.Is(err, ErrInvalidFeature) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeature, err)
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("%w: no features", ErrInvalidFeature)
	}
	return subs, nil
}

func decodeFeatureCollection(body []byte) ([]Submission, error) {
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, err
	}
	subs := make([]Submission, 0, len(fc.Features))
	for i, f := range fc.Features {
		s, err := geoJSONSubmission(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		subs = append(subs, s)
	}
	return subs, nil
}

func geoJSONSubmission(f *geojson.Feature) (Submission, error) {
	point, ok := f.Geometry.(orb.Point)
	if !ok {
		return Submission{}, fmt.Errorf("%w: geometry must be a Point", ErrInvalidFeature)
	}
	ppe, ok := f.Properties["ppe"].(float64)
	if !ok {
		return Submission{}, fmt.Errorf("%w: missing numeric ppe property", ErrInvalidFeature)
	}
	s := Submission{PPE: ppe, Lon: point.Lon(), Lat: point.Lat()}
	if ts, ok := f.Properties["timestamp"].(float64); ok {
		s.Timestamp = int64(ts)
	}
	return s, nil
}
