package backup

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zhengshuai-xiao/xbackup/internal"
	"github.com/zhengshuai-xiao/xbackup/pkg/chunker"
)

var ErrInvalidChunkMethod = errors.New("invalid chunk method")

// Splitter returns the chunks of one stream in order, then io.EOF. Returned
// chunk data is owned by the caller.
type Splitter interface {
	Next() (chunker.Chunk, error)
}

// CDC creates splitters for streams.
type CDC interface {
	NewSplitter(r io.Reader) (Splitter, error)
	String() string
}

// BuzhashCDC cuts content defined chunks with the buzhash chunker.
type BuzhashCDC struct {
	AvgChunkSize int
	BufferSize   int
}

func (b *BuzhashCDC) NewSplitter(r io.Reader) (Splitter, error) {
	c, err := chunker.New(b.AvgChunkSize)
	if err != nil {
		return nil, err
	}
	return chunker.NewReader(r, c, chunker.WithBufferSize(b.BufferSize)), nil
}

func (b *BuzhashCDC) String() string {
	return "buzhash:" + strings.ReplaceAll(internal.FormatBytes(uint64(b.AvgChunkSize)), " ", "")
}

// FixedCDC cuts the stream every ChunkSize bytes, which suits block device
// images better than content defined chunking.
type FixedCDC struct {
	ChunkSize int
}

func (f *FixedCDC) NewSplitter(r io.Reader) (Splitter, error) {
	if f.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: fixed chunk size %d", ErrInvalidChunkMethod, f.ChunkSize)
	}
	return &fixedSplitter{r: r, chunkSize: f.ChunkSize}, nil
}

func (f *FixedCDC) String() string {
	return "fixed:" + strings.ReplaceAll(internal.FormatBytes(uint64(f.ChunkSize)), " ", "")
}

type fixedSplitter struct {
	r         io.Reader
	chunkSize int
	offset    uint64
}

func (c *fixedSplitter) Next() (chunker.Chunk, error) {
	buf := make([]byte, c.chunkSize)
	n, err := io.ReadFull(c.r, buf)

	if err == io.EOF { // Clean end of stream, no bytes read.
		return chunker.Chunk{}, io.EOF
	}
	if err != nil && err != io.ErrUnexpectedEOF {
		return chunker.Chunk{}, err
	}

	chunk := chunker.Chunk{Offset: c.offset, Length: n, Data: buf[:n]}
	c.offset += uint64(n)
	return chunk, nil
}

// NewCDC parses a chunk method such as "buzhash:4M" or "fixed:128k".
// bufSize is the read size used by content defined splitters.
func NewCDC(method string, bufSize int) (CDC, error) {
	algo, sizeStr, ok := strings.Cut(method, ":")
	if !ok {
		return nil, fmt.Errorf("%w: %q, want <buzhash|fixed>:<size>", ErrInvalidChunkMethod, method)
	}
	size, err := internal.ParseSize(sizeStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidChunkMethod, method, err)
	}

	switch strings.ToLower(algo) {
	case "buzhash":
		if size < chunker.MinAvgSize || size > chunker.MaxAvgSize {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidChunkMethod, method, chunker.ErrInvalidAvgSize)
		}
		return &BuzhashCDC{AvgChunkSize: int(size), BufferSize: bufSize}, nil
	case "fixed":
		if size == 0 || size > 1<<30 {
			return nil, fmt.Errorf("%w: %q: fixed chunk size out of range", ErrInvalidChunkMethod, method)
		}
		return &FixedCDC{ChunkSize: int(size)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrInvalidChunkMethod, algo)
	}
}
