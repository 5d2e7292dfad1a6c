package backup

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/zhengshuai-xiao/xbackup/pkg/parallel"
	"github.com/zhengshuai-xiao/xbackup/pkg/store"
)

// Verify reads every distinct chunk of m from st and checks its digest,
// using workers goroutines. It stops at the first bad chunk and returns the
// number of chunks checked.
func Verify(ctx context.Context, st store.ChunkStore, m *Manifest, workers int) (int, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}

	first := make(map[store.Digest]Entry, len(m.Entries))
	for _, e := range m.Entries {
		if _, ok := first[e.Digest]; !ok {
			first[e.Digest] = e
		}
	}

	var checked atomic.Int64
	pool, err := parallel.New("verify", workers, func(d store.Digest) error {
		data, err := st.Get(ctx, d)
		if err != nil {
			return fmt.Errorf("chunk %s: %w", d, err)
		}
		if err := checkChunk(first[d], data); err != nil {
			return err
		}
		checked.Add(1)
		return nil
	})
	if err != nil {
		return 0, err
	}
	defer pool.Close()

	for _, d := range m.UniqueDigests() {
		if err := pool.Send(ctx, d); err != nil {
			if errors.Is(err, parallel.ErrAborted) {
				break
			}
			return int(checked.Load()), err
		}
	}
	if err := pool.Complete(); err != nil {
		return int(checked.Load()), fmt.Errorf("verify %s failed: %w", m.Name, err)
	}
	logger.Infof("verified %d chunks of %s", checked.Load(), m.Name)
	return int(checked.Load()), nil
}
