package compression

import (
	"fmt"

	"github.com/golang/snappy"
)

// maxDecodedSize bounds what a snappy header may claim, larger than any chunk.
const maxDecodedSize = 1 << 30

// SnappyCompressor implements the Compressor interface using snappy block
// encoding.
type SnappyCompressor struct{}

func NewSnappy() *SnappyCompressor {
	return &SnappyCompressor{}
}

func (c *SnappyCompressor) Type() CompressionType {
	return Compress_snappy
}

func (c *SnappyCompressor) TypeString() string {
	return "snappy"
}

func (c *SnappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(make([]byte, snappy.MaxEncodedLen(len(data))), data), nil
}

func (c *SnappyCompressor) Decompress(data []byte) ([]byte, error) {
	n, err := snappy.DecodedLen(data)
	if err != nil {
		return nil, err
	}
	if n > maxDecodedSize {
		return nil, fmt.Errorf("snappy block claims %d bytes", n)
	}
	return snappy.Decode(make([]byte, n), data)
}
