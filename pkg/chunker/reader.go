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

package chunker

import (
	"errors"
	"io"
)

const DefaultBufferSize = 64 << 10

// Chunk is one content-defined piece of a stream. Data is owned by the
// receiver and is not touched by the Reader afterwards.
type Chunk struct {
	Offset uint64
	Length int
	Data   []byte
}

type ReaderOption func(*Reader)

// WithBufferSize sets how many bytes are requested from the source per read.
func WithBufferSize(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.buf = make([]byte, n)
		}
	}
}

// Reader splits an io.Reader into chunks using a Chunker.
type Reader struct {
	rd io.Reader
	c  *Chunker

	buf        []byte
	start, end int

	pending []byte
	offset  uint64
	eof     bool
	err     error
}

// NewReader returns a Reader feeding r through c. c must not be used by
// anything else while the Reader is in use.
func NewReader(r io.Reader, c *Chunker, opts ...ReaderOption) *Reader {
	rd := &Reader{rd: r, c: c}
	for _, opt := range opts {
		opt(rd)
	}
	if rd.buf == nil {
		rd.buf = make([]byte, DefaultBufferSize)
	}
	return rd
}

// Offset returns the number of bytes emitted as chunks so far.
func (r *Reader) Offset() uint64 {
	return r.offset
}

// Next returns the next chunk. The final chunk of the stream may be shorter
// than the chunker's minimum size. After the last chunk Next returns io.EOF,
// read errors other than io.EOF are returned unchanged and are sticky.
func (r *Reader) Next() (Chunk, error) {
	if r.err != nil {
		return Chunk{}, r.err
	}
	for {
		if r.start < r.end {
			data := r.buf[r.start:r.end]
			pos := r.c.Scan(data)
			if pos == 0 {
				r.pending = append(r.pending, data...)
				r.start = r.end
			} else {
				r.pending = append(r.pending, data[:pos]...)
				r.start += pos
				return r.emit(), nil
			}
		}

		if r.eof {
			if len(r.pending) > 0 {
				r.c.Reset()
				return r.emit(), nil
			}
			r.err = io.EOF
			return Chunk{}, io.EOF
		}

		if err := r.fill(); err != nil {
			r.err = err
			return Chunk{}, err
		}
	}
}

func (r *Reader) fill() error {
	r.start, r.end = 0, 0
	for r.end == 0 {
		n, err := r.rd.Read(r.buf)
		r.end = n
		if errors.Is(err, io.EOF) {
			r.eof = true
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) emit() Chunk {
	data := make([]byte, len(r.pending))
	copy(data, r.pending)
	r.pending = r.pending[:0]

	chunk := Chunk{Offset: r.offset, Length: len(data), Data: data}
	r.offset += uint64(len(data))
	logger.Tracef("chunk at %d, length %d", chunk.Offset, chunk.Length)
	return chunk
}
