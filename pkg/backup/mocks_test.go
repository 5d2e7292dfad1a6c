package backup

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zhengshuai-xiao/xbackup/pkg/store"
)

// memStore is an in-memory ChunkStore.
type memStore struct {
	mu     sync.Mutex
	chunks map[store.Digest][]byte

	inserts atomic.Int32
	// failAt makes the n-th Insert fail when set
	failAt  int32
	failErr error
}

func newMemStore() *memStore {
	return &memStore{chunks: make(map[store.Digest][]byte)}
}

func (m *memStore) Name() string { return "memory" }

func (m *memStore) Insert(ctx context.Context, d store.Digest, data []byte) (bool, int64, error) {
	if n := m.inserts.Add(1); m.failAt > 0 && n >= m.failAt {
		return false, 0, m.failErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chunks[d]; ok {
		return true, 0, nil
	}
	m.chunks[d] = append([]byte(nil), data...)
	return false, int64(len(data)), nil
}

func (m *memStore) Get(ctx context.Context, d store.Digest) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.chunks[d]
	if !ok {
		return nil, store.ErrChunkNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks)
}
