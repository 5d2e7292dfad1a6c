package store

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockChunkStore is a mock implementation of the ChunkStore interface.
type MockChunkStore struct {
	mock.Mock
}

func (m *MockChunkStore) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockChunkStore) Insert(ctx context.Context, d Digest, data []byte) (bool, int64, error) {
	args := m.Called(ctx, d, data)
	return args.Bool(0), args.Get(1).(int64), args.Error(2)
}

func (m *MockChunkStore) Get(ctx context.Context, d Digest) ([]byte, error) {
	args := m.Called(ctx, d)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockChunkStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockIndex is a mock implementation of the Index interface.
type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) Has(ctx context.Context, d Digest) (bool, error) {
	args := m.Called(ctx, d)
	return args.Bool(0), args.Error(1)
}

func (m *MockIndex) Add(ctx context.Context, d Digest, size int64) error {
	args := m.Called(ctx, d, size)
	return args.Error(0)
}

func (m *MockIndex) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockScanIndex also enumerates its digests.
type MockScanIndex struct {
	MockIndex
	digests []Digest
}

func (m *MockScanIndex) Scan(ctx context.Context, fn func(Digest) error) error {
	for _, d := range m.digests {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}
