package compression

import (
	"bytes"
	"compress/zlib"
	"io"
	"sync"
)

// zlib writers are large, chunks are compressed from many workers at once
var zlibWriters = sync.Pool{
	New: func() any { return zlib.NewWriter(nil) },
}

// ZlibCompressor implements the Compressor interface using zlib.
type ZlibCompressor struct{}

func NewZlib() *ZlibCompressor {
	return &ZlibCompressor{}
}

func (c *ZlibCompressor) Type() CompressionType {
	return Compress_zlib
}

func (c *ZlibCompressor) TypeString() string {
	return "zlib"
}

func (c *ZlibCompressor) Compress(data []byte) ([]byte, error) {
	var b bytes.Buffer
	b.Grow(len(data)/2 + 16)

	w := zlibWriters.Get().(*zlib.Writer)
	defer zlibWriters.Put(w)
	w.Reset(&b)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func (c *ZlibCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
