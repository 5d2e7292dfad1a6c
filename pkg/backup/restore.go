package backup

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/zhengshuai-xiao/xbackup/pkg/store"
)

var ErrDigestMismatch = errors.New("chunk digest mismatch")

func checkChunk(e Entry, data []byte) error {
	if len(data) != e.Length {
		return fmt.Errorf("%w: chunk %s at offset %d has %d bytes, expected %d", ErrDigestMismatch, e.Digest, e.Offset, len(data), e.Length)
	}
	if fp := CalcFP(data); fp != e.Digest {
		return fmt.Errorf("%w: chunk at offset %d is %s, expected %s", ErrDigestMismatch, e.Offset, fp, e.Digest)
	}
	return nil
}

// Restore writes the stream described by m to w and returns the number of
// bytes written. Every chunk is checked against its digest first.
func Restore(ctx context.Context, st store.ChunkStore, m *Manifest, w io.Writer) (int64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	var written int64
	for _, e := range m.Entries {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		data, err := st.Get(ctx, e.Digest)
		if err != nil {
			return written, fmt.Errorf("failed to get chunk at offset %d: %w", e.Offset, err)
		}
		if err := checkChunk(e, data); err != nil {
			return written, err
		}
		n, err := w.Write(data)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("failed to write restored data: %w", err)
		}
	}
	logger.Infof("restored %s (%s), %d bytes", m.Name, m.ID, written)
	return written, nil
}
