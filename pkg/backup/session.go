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

// Package backup cuts streams into chunks, stores the chunks that are not
// stored yet and records the stream layout in a manifest.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhengshuai-xiao/xbackup/internal"
	"github.com/zhengshuai-xiao/xbackup/pkg/chunker"
	"github.com/zhengshuai-xiao/xbackup/pkg/parallel"
	"github.com/zhengshuai-xiao/xbackup/pkg/store"
)

var logger = internal.GetLogger("backup")

// Session backs up streams into one chunk store.
type Session struct {
	conf  *Config
	store store.ChunkStore
	cdc   CDC
	Stats Stats
}

func NewSession(conf *Config, st store.ChunkStore) (*Session, error) {
	if conf.Workers < 1 {
		return nil, fmt.Errorf("%w: %d", parallel.ErrInvalidThreads, conf.Workers)
	}
	cdc, err := NewCDC(conf.ChunkMethod, conf.ReadBufferSize)
	if err != nil {
		return nil, err
	}
	return &Session{conf: conf, store: st, cdc: cdc}, nil
}

// Backup reads r to the end, storing every chunk, and returns the manifest
// of the stream. The first chunk that cannot be stored fails the backup.
func (s *Session) Backup(ctx context.Context, name string, r io.Reader) (*Manifest, error) {
	start := time.Now()
	storedBefore := s.Stats.StoredBytes.Load()
	splitter, err := s.cdc.NewSplitter(r)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var entries []Entry
	pool, err := parallel.New("backup", s.conf.Workers, func(c chunker.Chunk) error {
		fp := CalcFP(c.Data)
		exists, stored, err := s.store.Insert(ctx, fp, c.Data)
		if err != nil {
			return fmt.Errorf("failed to store chunk at offset %d: %w", c.Offset, err)
		}
		s.Stats.add(c.Length, exists, stored)

		mu.Lock()
		entries = append(entries, Entry{Offset: c.Offset, Length: c.Length, Digest: fp})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	var size uint64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := splitter.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		size += uint64(c.Length)

		if err := pool.Send(ctx, c); err != nil {
			if errors.Is(err, parallel.ErrAborted) || errors.Is(err, parallel.ErrChannelClosed) {
				// Complete reports why the workers stopped
				break
			}
			return nil, err
		}
	}

	if err := pool.Complete(); err != nil {
		logger.Errorf("backup %s failed: %v", name, err)
		return nil, fmt.Errorf("backup %s failed: %w", name, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Offset < entries[j].Offset })
	m := &Manifest{
		ID:          uuid.New(),
		Name:        name,
		Created:     start.UTC(),
		ChunkMethod: s.cdc.String(),
		Size:        size,
		Stored:      uint64(s.Stats.StoredBytes.Load() - storedBefore),
		Entries:     entries,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	logger.Infof("backup %s (%s) done in %v: %s", name, m.ID, time.Since(start).Round(time.Millisecond), &s.Stats)
	return m, nil
}
