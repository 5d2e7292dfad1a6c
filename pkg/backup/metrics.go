package backup

import (
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/zhengshuai-xiao/xbackup/internal"
)

var (
	chunksMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xbackup",
		Name:      "chunks_total",
		Help:      "Chunks processed by backups, by whether they were new",
	}, []string{"state"})
	bytesMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xbackup",
		Name:      "bytes_total",
		Help:      "Bytes read from backup sources and bytes written to the store",
	}, []string{"kind"})
)

// Stats counts what one backup did. It is updated from all workers.
type Stats struct {
	Chunks      atomic.Int64
	NewChunks   atomic.Int64
	Bytes       atomic.Int64
	StoredBytes atomic.Int64
}

func (s *Stats) add(length int, exists bool, stored int64) {
	s.Chunks.Add(1)
	s.Bytes.Add(int64(length))
	bytesMetric.WithLabelValues("read").Add(float64(length))
	if exists {
		chunksMetric.WithLabelValues("duplicate").Inc()
		return
	}
	s.NewChunks.Add(1)
	s.StoredBytes.Add(stored)
	chunksMetric.WithLabelValues("new").Inc()
	bytesMetric.WithLabelValues("stored").Add(float64(stored))
}

// DedupRatio is the input size divided by what was written, 0 when nothing was.
func (s *Stats) DedupRatio() float64 {
	stored := s.StoredBytes.Load()
	if stored == 0 {
		return 0
	}
	return float64(s.Bytes.Load()) / float64(stored)
}

func (s *Stats) String() string {
	return fmt.Sprintf("%d chunks (%d new), %s read, %s stored",
		s.Chunks.Load(), s.NewChunks.Load(),
		internal.FormatBytes(uint64(s.Bytes.Load())),
		internal.FormatBytes(uint64(s.StoredBytes.Load())))
}

// WriteMetrics dumps the process metrics in text format to path, for the node
// exporter textfile collector.
func WriteMetrics(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
