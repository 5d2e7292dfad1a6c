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

package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/zhengshuai-xiao/xbackup/internal"
	"github.com/zhengshuai-xiao/xbackup/pkg/store"
)

var ErrInvalidManifest = errors.New("invalid manifest")

// Entry is one chunk of a backed up stream.
type Entry struct {
	Offset uint64       `json:"offset"`
	Length int          `json:"length"`
	Digest store.Digest `json:"digest"`
}

// Manifest lists the chunks of one backup in stream order.
type Manifest struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Created     time.Time `json:"created"`
	ChunkMethod string    `json:"chunk_method"`
	Size        uint64    `json:"size"`
	// Stored is the number of bytes this backup added to the store.
	Stored      uint64    `json:"stored"`
	Entries     []Entry   `json:"entries"`
}

// Validate checks that the entries cover [0, Size) without gaps or overlap.
func (m *Manifest) Validate() error {
	var off uint64
	for i, e := range m.Entries {
		if e.Length <= 0 {
			return fmt.Errorf("%w: entry %d has length %d", ErrInvalidManifest, i, e.Length)
		}
		if e.Offset != off {
			return fmt.Errorf("%w: entry %d at offset %d, expected %d", ErrInvalidManifest, i, e.Offset, off)
		}
		off += uint64(e.Length)
	}
	if off != m.Size {
		return fmt.Errorf("%w: entries cover %d bytes, size is %d", ErrInvalidManifest, off, m.Size)
	}
	return nil
}

// UniqueDigests returns the distinct chunk digests referenced by m.
func (m *Manifest) UniqueDigests() []store.Digest {
	set := internal.NewSet[store.Digest]()
	var out []store.Digest
	for _, e := range m.Entries {
		if set.Add(e.Digest) {
			out = append(out, e.Digest)
		}
	}
	return out
}

// WriteManifest stores m as JSON at path, replacing any previous file.
func WriteManifest(path string, m *Manifest) error {
	buf, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := internal.WriteFileAtomic(path, append(buf, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	logger.Debugf("wrote manifest %s (%d entries) to %s", m.ID, len(m.Entries), path)
	return nil
}

// ReadManifest loads and validates the manifest at path.
func ReadManifest(path string) (*Manifest, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m := &Manifest{}
	if err := json.Unmarshal(buf, m); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidManifest, path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
