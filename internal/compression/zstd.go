package compression

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

// ZstdCompressor implements the Compressor interface using Zstandard. The
// underlying encoder and decoder are shared, EncodeAll and DecodeAll are safe
// for concurrent use.
type ZstdCompressor struct{}

func NewZstd() *ZstdCompressor {
	return &ZstdCompressor{}
}

func initZstd() {
	zstdEnc, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1), zstd.WithZeroFrames(true))
	if zstdErr != nil {
		return
	}
	zstdDec, zstdErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
}

func (c *ZstdCompressor) Type() CompressionType {
	return Compress_zstd
}

func (c *ZstdCompressor) TypeString() string {
	return "zstd"
}

func (c *ZstdCompressor) Compress(data []byte) ([]byte, error) {
	zstdOnce.Do(initZstd)
	if zstdErr != nil {
		return nil, zstdErr
	}
	return zstdEnc.EncodeAll(data, make([]byte, 0, len(data)/2+16)), nil
}

func (c *ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	zstdOnce.Do(initZstd)
	if zstdErr != nil {
		return nil, zstdErr
	}
	out, err := zstdDec.DecodeAll(data, nil)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return []byte{}, nil
	}
	return out, nil
}
