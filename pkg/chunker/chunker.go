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

// Package chunker implements a content-defined chunker based on a buzhash
// rolling hash over a 48 byte window. Boundaries depend only on the bytes of
// the stream, never on how the stream is sliced when fed to Scan, so the
// same data always produces the same chunks.
package chunker

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/zhengshuai-xiao/xbackup/internal"
)

var logger = internal.GetLogger("chunker")

const (
	// WindowSize is the number of bytes covered by the rolling hash.
	WindowSize = 48

	MinAvgSize = 64
	MaxAvgSize = 4 << 20
)

var ErrInvalidAvgSize = errors.New("invalid average chunk size")

// Chunker finds chunk boundaries in a byte stream. A Chunker holds the state
// of exactly one stream and must not be shared between goroutines.
type Chunker struct {
	h          uint32
	windowSize int
	chunkSize  int

	chunkSizeMin int
	chunkSizeMax int
	chunkSizeAvg int

	discriminator uint32

	window [WindowSize]byte
}

// New returns a chunker producing chunks of avg bytes on average. Chunks are
// never shorter than avg/4 (except the last one of a stream) and never longer
// than avg*4.
func New(avg int) (*Chunker, error) {
	if avg < MinAvgSize || avg > MaxAvgSize {
		return nil, fmt.Errorf("%w: %d, must be within [%d, %d]", ErrInvalidAvgSize, avg, MinAvgSize, MaxAvgSize)
	}
	return &Chunker{
		chunkSizeMin:  avg >> 2,
		chunkSizeMax:  avg << 2,
		chunkSizeAvg:  avg,
		discriminator: discriminatorFromAvg(avg),
	}, nil
}

// discriminatorFromAvg derives the cut discriminator d so that cutting where
// h mod d == d-1 yields avg sized chunks on average. The fit only holds for
// min = avg/4 and max = avg*4.
func discriminatorFromAvg(avg int) uint32 {
	a := float64(avg)
	return uint32(a / (-1.42888852e-7*a + 1.33237515))
}

func (c *Chunker) MinSize() int { return c.chunkSizeMin }

func (c *Chunker) MaxSize() int { return c.chunkSizeMax }

func (c *Chunker) AvgSize() int { return c.chunkSizeAvg }

func (c *Chunker) Discriminator() uint32 { return c.discriminator }

// Reset drops the state of the current chunk so the chunker can be reused
// for a new stream.
func (c *Chunker) Reset() {
	c.h = 0
	c.windowSize = 0
	c.chunkSize = 0
}

// Scan looks for the end of the current chunk in data. It returns the
// position just past the boundary, or 0 when all of data belongs to the
// current chunk and more input is needed. Bytes after a returned position
// have not been consumed and must be passed to the next call.
func (c *Chunker) Scan(data []byte) int {
	pos := 0

	if c.windowSize < WindowSize {
		n := copy(c.window[c.windowSize:], data)
		pos += n
		c.windowSize += n
		c.chunkSize += n

		if c.windowSize < WindowSize {
			return 0
		}
		c.start()
	}

	for pos < len(data) {
		idx := c.chunkSize % WindowSize
		enter := data[pos]
		leave := c.window[idx]
		c.window[idx] = enter
		c.h = bits.RotateLeft32(c.h, 1) ^
			bits.RotateLeft32(buzhashTable[leave], WindowSize) ^
			buzhashTable[enter]

		c.chunkSize++
		pos++
		if c.shallBreak() {
			c.h = 0
			c.chunkSize = 0
			c.windowSize = 0
			return pos
		}
	}

	return 0
}

func (c *Chunker) shallBreak() bool {
	if c.chunkSize >= c.chunkSizeMax {
		return true
	}
	if c.chunkSize < c.chunkSizeMin {
		return false
	}
	return c.h%c.discriminator == c.discriminator-1
}

// start seeds the hash from a freshly filled window. The newest byte is not
// rotated, the oldest is rotated by WindowSize-1.
func (c *Chunker) start() {
	for i := 0; i < WindowSize-1; i++ {
		c.h ^= bits.RotateLeft32(buzhashTable[c.window[i]], WindowSize-(i+1))
	}
	c.h ^= buzhashTable[c.window[WindowSize-1]]
}
