// Package ingest turns client submissions into stored features. It is the
// only writer of aggregate ids.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/nielsole/ppe_tile/renderer"
)

// FeatureWriter persists features. *store.FeatureStore implements it.
type FeatureWriter interface {
	Insert(ctx context.Context, features []renderer.Feature) ([]uint64, error)
}

type Result struct {
	Accepted   int `json:"accepted"`
	Duplicates int `json:"duplicates"`
}

type Ingester struct {
	writer FeatureWriter
	seen   *lru.Cache[uint64, struct{}]
	logger *slog.Logger
	now    func() time.Time
}

// NewIngester returns an ingester writing to w. Submissions identical to one
// of the last dedupeSize accepted ones are dropped; zero disables that.
func NewIngester(w FeatureWriter, dedupeSize int) (*Ingester, error) {
	in := &Ingester{
		writer: w,
		logger: slog.With("d", "ingest"),
		now:    time.Now,
	}
	if dedupeSize > 0 {
		seen, err := lru.New[uint64, struct{}](dedupeSize)
		if err != nil {
			return nil, err
		}
		in.seen = seen
	}
	return in, nil
}

// Ingest decodes and stores a request body.
func (in *Ingester) Ingest(ctx context.Context, body []byte) (Result, error) {
	subs, err := Decode(body)
	if err != nil {
		return Result{}, err
	}
	return in.IngestSubmissions(ctx, subs)
}

// IngestSubmissions validates every submission first; a single invalid one
// rejects the whole batch.
func (in *Ingester) IngestSubmissions(ctx context.Context, subs []Submission) (Result, error) {
	for i, s := range subs {
		if err := Validate(s); err != nil {
			return Result{}, fmt.Errorf("submission %d: %w", i, err)
		}
	}

	now := in.now().UnixMilli()
	features := make([]renderer.Feature, 0, len(subs))
	keys := make([]uint64, 0, len(subs))
	batch := make(map[uint64]struct{}, len(subs))
	result := Result{}
	for _, s := range subs {
		key, ok := in.dedupeKey(s)
		if ok {
			_, inBatch := batch[key]
			if inBatch || in.seen.Contains(key) {
				result.Duplicates++
				continue
			}
			batch[key] = struct{}{}
			keys = append(keys, key)
		}
		features = append(features, newFeature(s, now))
	}

	if len(features) > 0 {
		if _, err := in.writer.Insert(ctx, features); err != nil {
			return Result{}, err
		}
	}
	for _, key := range keys {
		in.seen.Add(key, struct{}{})
	}
	result.Accepted = len(features)
	in.logger.Debug("Ingested features", "accepted", result.Accepted, "duplicates", result.Duplicates)
	return result, nil
}

func (in *Ingester) dedupeKey(s Submission) (uint64, bool) {
	if in.seen == nil {
		return 0, false
	}
	hash, err := hashstructure.Hash(s, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, false
	}
	return hash, true
}

func newFeature(s Submission, now int64) renderer.Feature {
	ts := s.Timestamp
	if ts == 0 {
		ts = now
	}
	return renderer.Feature{
		PPE:         s.PPE,
		Location:    renderer.Point{Lon: s.Lon, Lat: s.Lat},
		AggregateID: renderer.GenerateAggregateID(s.Lon, s.Lat),
		Timestamp:   ts,
	}
}
