package store

import (
	"errors"
	"fmt"

	"github.com/zhengshuai-xiao/xbackup/internal"
	"github.com/zhengshuai-xiao/xbackup/internal/compression"
)

// blobHeaderSize is one byte of compression type followed by the little
// endian CRC32 of the uncompressed chunk.
const blobHeaderSize = 5

var ErrCorruptBlob = errors.New("corrupt chunk blob")

// EncodeBlob turns chunk data into the on-store representation. A nil
// compressor stores the data as is; so does a compressor that fails to make
// the data smaller.
func EncodeBlob(c compression.Compressor, data []byte) ([]byte, error) {
	ctype := compression.Compress_none
	payload := data
	if c != nil {
		compressed, err := c.Compress(data)
		if err != nil {
			return nil, fmt.Errorf("failed to compress chunk with %s: %w", c.TypeString(), err)
		}
		if len(compressed) < len(data) {
			ctype = c.Type()
			payload = compressed
		}
	}

	blob := make([]byte, blobHeaderSize+len(payload))
	blob[0] = byte(ctype)
	crc := internal.UInt32ToBytesLittleEndian(internal.CalculateCRC32(data))
	copy(blob[1:blobHeaderSize], crc[:])
	copy(blob[blobHeaderSize:], payload)
	return blob, nil
}

// DecodeBlob reverses EncodeBlob and checks the CRC of the result.
func DecodeBlob(blob []byte) ([]byte, error) {
	if len(blob) < blobHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorruptBlob, len(blob))
	}
	ctype := compression.CompressionType(blob[0])
	crc := internal.BytesToUInt32LittleEndian(blob[1:blobHeaderSize])
	payload := blob[blobHeaderSize:]

	c, err := compression.GetCompressorViaType(ctype)
	if err != nil {
		return nil, fmt.Errorf("%w: compression type %d: %w", ErrCorruptBlob, ctype, err)
	}
	data := payload
	if c != nil {
		if data, err = c.Decompress(payload); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorruptBlob, c.TypeString(), err)
		}
	}
	if !internal.VerifyCRC32(data, crc) {
		return nil, fmt.Errorf("%w: crc mismatch", ErrCorruptBlob)
	}
	return data, nil
}
