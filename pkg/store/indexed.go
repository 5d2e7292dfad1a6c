package store

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var lookupMetric = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "xbackup",
	Subsystem: "store",
	Name:      "lookups_total",
	Help:      "Chunk presence lookups by the layer that answered them",
}, []string{"layer"})

// IndexedStore answers "is this chunk stored already" from a local LRU of
// digests, then from the shared Index, and only then asks the backend.
type IndexedStore struct {
	backend ChunkStore
	index   Index
	cache   *lru.Cache[Digest, struct{}]
}

// NewIndexedStore wraps backend. index may be nil, cacheSize <= 0 disables
// the local cache.
func NewIndexedStore(backend ChunkStore, index Index, cacheSize int) (*IndexedStore, error) {
	s := &IndexedStore{backend: backend, index: index}
	if cacheSize > 0 {
		cache, err := lru.New[Digest, struct{}](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create digest cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

func (s *IndexedStore) Name() string {
	return s.backend.Name()
}

// Warm loads digests from the index into the local cache, when the index can
// enumerate them.
func (s *IndexedStore) Warm(ctx context.Context) (int, error) {
	scanner, ok := s.index.(interface {
		Scan(ctx context.Context, fn func(Digest) error) error
	})
	if !ok || s.cache == nil {
		return 0, nil
	}
	n := 0
	err := scanner.Scan(ctx, func(d Digest) error {
		s.cache.Add(d, struct{}{})
		n++
		return nil
	})
	logger.Infof("loaded %d digests into the local cache", n)
	return n, err
}

func (s *IndexedStore) Insert(ctx context.Context, d Digest, data []byte) (bool, int64, error) {
	if s.cache != nil && s.cache.Contains(d) {
		lookupMetric.WithLabelValues("cache").Inc()
		return true, 0, nil
	}
	if s.index != nil {
		has, err := s.index.Has(ctx, d)
		if err != nil {
			logger.Warnf("index lookup failed, asking the backend: %v", err)
		} else if has {
			lookupMetric.WithLabelValues("index").Inc()
			s.remember(d)
			return true, 0, nil
		}
	}

	lookupMetric.WithLabelValues("backend").Inc()
	exists, stored, err := s.backend.Insert(ctx, d, data)
	if err != nil {
		return false, 0, err
	}
	s.remember(d)
	if s.index != nil {
		if err := s.index.Add(ctx, d, int64(len(data))); err != nil {
			logger.Warnf("failed to update index: %v", err)
		}
	}
	return exists, stored, nil
}

func (s *IndexedStore) remember(d Digest) {
	if s.cache != nil {
		s.cache.Add(d, struct{}{})
	}
}

func (s *IndexedStore) Get(ctx context.Context, d Digest) ([]byte, error) {
	return s.backend.Get(ctx, d)
}

func (s *IndexedStore) Close() error {
	err := s.backend.Close()
	if s.index != nil {
		err = errors.Join(err, s.index.Close())
	}
	return err
}
