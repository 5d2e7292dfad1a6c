// Copyright 2025 zhengshuai.xiao@outlook.com
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store keeps deduplicated chunks addressed by their digest, on a
// local filesystem or in an S3 compatible object store.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zhengshuai-xiao/xbackup/internal"
	"github.com/zhengshuai-xiao/xbackup/internal/compression"
)

var logger = internal.GetLogger("store")

const (
	BackendPOSIX = "posix"
	BackendS3    = "s3"
	BackendAWS   = "aws"
)

var (
	ErrChunkNotFound  = errors.New("chunk not found")
	ErrUnknownBackend = errors.New("unknown store backend")
)

// ChunkStore is the content addressed sink chunks end up in. Implementations
// must be safe for concurrent use.
type ChunkStore interface {
	Name() string
	// Insert stores data under d unless a chunk with that digest is already
	// present. stored is the number of bytes actually written.
	Insert(ctx context.Context, d Digest, data []byte) (exists bool, stored int64, err error)
	// Get returns the chunk data, or ErrChunkNotFound.
	Get(ctx context.Context, d Digest) ([]byte, error)
	Close() error
}

type Config struct {
	Backend string
	// Path is the repository root for the posix backend.
	Path string

	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	Secure    bool

	Compression string

	// RedisAddr enables the shared fingerprint index, e.g. "localhost:6379/1"
	// or "mymaster,10.0.0.1:26379,10.0.0.2:26379" for sentinel.
	RedisAddr    string
	Namespace    string
	Retries      int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// CacheSize is the number of digests remembered locally, 0 disables it.
	CacheSize int
}

func NewConfig() *Config {
	return &Config{
		Backend:      BackendPOSIX,
		Path:         ".",
		Region:       "us-east-1",
		Bucket:       "xbackup",
		Compression:  "zstd",
		Namespace:    "xbackup",
		Retries:      10,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Second,
		CacheSize:    1 << 20,
	}
}

// Open builds the store described by conf: the backend, optionally fronted by
// the Redis fingerprint index and a local digest cache.
func Open(ctx context.Context, conf *Config) (ChunkStore, error) {
	comp, err := compression.GetCompressorViaString(conf.Compression)
	if err != nil {
		return nil, fmt.Errorf("compression %q: %w", conf.Compression, err)
	}

	var backend ChunkStore
	switch conf.Backend {
	case BackendPOSIX:
		backend, err = NewPOSIXStore(conf.Path, comp)
	case BackendS3:
		backend, err = NewS3Store(ctx, conf, comp)
	case BackendAWS:
		backend, err = NewAWSStore(ctx, conf, comp)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, conf.Backend)
	}
	if err != nil {
		return nil, err
	}

	var index Index
	if conf.RedisAddr != "" {
		index, err = NewRedisIndex(conf.RedisAddr, conf)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}
	if index == nil && conf.CacheSize <= 0 {
		return backend, nil
	}

	st, err := NewIndexedStore(backend, index, conf.CacheSize)
	if err != nil {
		backend.Close()
		if index != nil {
			index.Close()
		}
		return nil, err
	}
	if index != nil {
		if _, err := st.Warm(ctx); err != nil {
			logger.Warnf("failed to warm the digest cache: %v", err)
		}
	}
	logger.Infof("opened %s store (compression %s, index %v, cache %d)", backend.Name(), conf.Compression, index != nil, conf.CacheSize)
	return st, nil
}
