package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zhengshuai-xiao/xbackup/internal"
	"github.com/zhengshuai-xiao/xbackup/internal/compression"
)

// POSIXStore keeps one file per chunk under <root>/.chunks/<prefix>/<digest>.
type POSIXStore struct {
	root string
	comp compression.Compressor
}

func NewPOSIXStore(root string, comp compression.Compressor) (*POSIXStore, error) {
	dir := filepath.Join(root, ".chunks")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chunk directory %s: %w", dir, err)
	}
	return &POSIXStore{root: root, comp: comp}, nil
}

func (p *POSIXStore) Name() string {
	return "posix:" + p.root
}

func (p *POSIXStore) chunkPath(d Digest) string {
	return filepath.Join(p.root, ".chunks", d.prefix(), d.String())
}

func (p *POSIXStore) Insert(ctx context.Context, d Digest, data []byte) (bool, int64, error) {
	path := p.chunkPath(d)
	if _, err := os.Stat(path); err == nil {
		return true, 0, nil
	} else if !os.IsNotExist(err) {
		return false, 0, fmt.Errorf("failed to stat chunk %s: %w", d, err)
	}

	blob, err := EncodeBlob(p.comp, data)
	if err != nil {
		return false, 0, err
	}
	if err := internal.WriteFileAtomic(path, blob, 0644); err != nil {
		return false, 0, fmt.Errorf("failed to store chunk %s: %w", d, err)
	}
	logger.Tracef("stored chunk %s (%d -> %d bytes)", d, len(data), len(blob))
	return false, int64(len(blob)), nil
}

func (p *POSIXStore) Get(ctx context.Context, d Digest) ([]byte, error) {
	blob, err := os.ReadFile(p.chunkPath(d))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrChunkNotFound, d)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk %s: %w", d, err)
	}
	data, err := DecodeBlob(blob)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", d, err)
	}
	return data, nil
}

func (p *POSIXStore) Close() error {
	return nil
}
