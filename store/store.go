// Package store persists features in bbolt and answers tile queries from an
// in-memory R-tree that is rebuilt when the store is opened.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dhconnelly/rtreego"
	"github.com/nielsole/ppe_tile/renderer"
	"go.etcd.io/bbolt"
)

var (
	// ErrQuery wraps every failure of QueryFeatures.
	ErrQuery = errors.New("feature query failed")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("feature store closed")
)

var featuresBucket = []byte("features")

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50

	// half the edge of the rectangle a point occupies in the index, in degrees
	pointTolerance = 1e-9
)

type indexedFeature struct {
	seq     uint64
	feature renderer.Feature
	rect    *rtreego.Rect
}

func (f *indexedFeature) Bounds() *rtreego.Rect {
	return f.rect
}

func newIndexedFeature(seq uint64, f renderer.Feature) *indexedFeature {
	return &indexedFeature{
		seq:     seq,
		feature: f,
		rect:    rtreego.Point{f.Location.Lon, f.Location.Lat}.ToRect(pointTolerance),
	}
}

type FeatureStore struct {
	db     *bbolt.DB
	filter renderer.ResolutionFilter
	logger *slog.Logger

	mu     sync.RWMutex
	tree   *rtreego.Rtree
	closed bool
}

type options struct {
	filter   renderer.ResolutionFilter
	readOnly bool
	timeout  time.Duration
}

type Option func(*options)

func WithResolutionFilter(filter renderer.ResolutionFilter) Option {
	return func(o *options) { o.filter = filter }
}

// ReadOnly opens the database without taking the write lock, so a running
// server and a one-shot reader can share it.
func ReadOnly() Option {
	return func(o *options) { o.readOnly = true }
}

// Open opens (or creates) the feature database at path and loads the spatial
// index. The caller owns the returned store and must Close it.
func Open(path string, opts ...Option) (*FeatureStore, error) {
	o := options{
		filter:  renderer.DefaultResolutionFilter(),
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if !o.readOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout:  o.timeout,
		ReadOnly: o.readOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("open feature database %s: %w", path, err)
	}

	s := &FeatureStore{
		db:     db,
		filter: o.filter,
		logger: slog.With("d", "store"),
		tree:   rtreego.NewTree(dimensions, minChildren, maxChildren),
	}
	if !o.readOnly {
		err = db.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(featuresBucket)
			return err
		})
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Info("Opened feature store", "path", path, "features", s.tree.Size(), "readonly", o.readOnly)
	return s, nil
}

func (s *FeatureStore) load() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(featuresBucket)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var f renderer.Feature
			if err := decodeFeature(v, &f); err != nil {
				return fmt.Errorf("feature %d: %w", btoi(k), err)
			}
			s.tree.Insert(newIndexedFeature(btoi(k), f))
			return nil
		})
	})
}

// Close releases the database. It is safe to call more than once.
func (s *FeatureStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Count returns the number of stored features.
func (s *FeatureStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Size()
}

// Insert stores features in a single transaction and returns their sequence
// numbers. Features are persisted verbatim, including their aggregate id.
func (s *FeatureStore) Insert(ctx context.Context, features []renderer.Feature) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	seqs := make([]uint64, len(features))
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(featuresBucket)
		if bucket == nil {
			return fmt.Errorf("bucket %q does not exist", featuresBucket)
		}
		for i, f := range features {
			seq, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			data, err := encodeFeature(f)
			if err != nil {
				return err
			}
			if err := bucket.Put(itob(seq), data); err != nil {
				return err
			}
			seqs[i] = seq
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("insert features: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range features {
		s.tree.Insert(newIndexedFeature(seqs[i], f))
	}
	return seqs, nil
}

// QueryFeatures returns the features inside bbox that pass the resolution
// filter at zoom, in insertion order. Only PPE and Location are set.
func (s *FeatureStore) QueryFeatures(ctx context.Context, bbox renderer.BoundingBox, zoom uint32) ([]renderer.Feature, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	rect, err := rtreego.NewRect(
		rtreego.Point{bbox.West(), bbox.South()},
		[]float64{bbox.East() - bbox.West(), bbox.North() - bbox.South()},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid bounding box %v: %w", ErrQuery, bbox, err)
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, fmt.Errorf("%w: %w", ErrQuery, ErrClosed)
	}
	candidates := s.tree.SearchIntersect(rect)
	s.mu.RUnlock()

	matches := make([]*indexedFeature, 0, len(candidates))
	for _, c := range candidates {
		item, ok := c.(*indexedFeature)
		if !ok {
			continue
		}
		if !bbox.Contains(item.feature.Location) {
			continue
		}
		if !s.filter.Keep(item.feature.AggregateID, zoom) {
			continue
		}
		matches = append(matches, item)
	}
	// The tree returns matches in no particular order; the draw order must not
	// depend on it.
	sort.Slice(matches, func(i, j int) bool { return matches[i].seq < matches[j].seq })

	features := make([]renderer.Feature, len(matches))
	for i, m := range matches {
		features[i] = renderer.Feature{PPE: m.feature.PPE, Location: m.feature.Location}
	}
	return features, nil
}
