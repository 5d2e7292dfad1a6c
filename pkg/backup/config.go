package backup

import (
	"runtime"

	"github.com/zhengshuai-xiao/xbackup/pkg/chunker"
)

type Config struct {
	// ChunkMethod is "<buzhash|fixed>:<size>", e.g. "buzhash:4M" or "fixed:128k".
	ChunkMethod string
	// Workers is the number of goroutines hashing and storing chunks.
	Workers int
	// ReadBufferSize is how much is read from the source at a time.
	ReadBufferSize int
}

func NewConfig() *Config {
	return &Config{
		ChunkMethod:    "buzhash:4M",
		Workers:        runtime.NumCPU(),
		ReadBufferSize: chunker.DefaultBufferSize,
	}
}
