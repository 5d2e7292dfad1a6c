package chunker

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lcgData returns n bytes from a linear congruential generator, reproducible
// in any language.
func lcgData(n int, seed uint32) []byte {
	out := make([]byte, n)
	x := seed
	for i := range out {
		x = x*1103515245 + 12345
		out[i] = byte(x >> 16)
	}
	return out
}

func randomData(t testing.TB, n int, seed int64) []byte {
	data := make([]byte, n)
	_, err := rand.New(rand.NewSource(seed)).Read(data)
	require.NoError(t, err)
	return data
}

// boundaries feeds data to c in pieces of the given sizes (cycled) and
// returns the absolute end offset of every boundary found.
func boundaries(c *Chunker, data []byte, pieces []int) []int {
	var ends []int
	off, p := 0, 0
	for off < len(data) {
		n := pieces[p%len(pieces)]
		p++
		if off+n > len(data) {
			n = len(data) - off
		}
		piece := data[off : off+n]
		base := off
		for len(piece) > 0 {
			pos := c.Scan(piece)
			if pos == 0 {
				break
			}
			base += pos
			ends = append(ends, base)
			piece = piece[pos:]
		}
		off += n
	}
	return ends
}

func TestNew_Validation(t *testing.T) {
	testCases := []struct {
		name        string
		avg         int
		expectError bool
	}{
		{"Zero", 0, true},
		{"Negative", -4096, true},
		{"Below minimum", MinAvgSize - 1, true},
		{"Minimum", MinAvgSize, false},
		{"Default 4K", 4096, false},
		{"Maximum", MaxAvgSize, false},
		{"Above maximum", MaxAvgSize + 1, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New(tc.avg)
			if tc.expectError {
				assert.ErrorIs(t, err, ErrInvalidAvgSize)
				assert.Nil(t, c)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.avg/4, c.MinSize())
				assert.Equal(t, tc.avg*4, c.MaxSize())
				assert.Equal(t, tc.avg, c.AvgSize())
			}
		})
	}
}

func TestDiscriminator(t *testing.T) {
	testCases := []struct {
		avg  int
		want uint32
	}{
		{64, 48},
		{4096, 3075},
		{65536, 49535},
		{1 << 20, 886711},
		{4 << 20, 5721670},
	}
	for _, tc := range testCases {
		c, err := New(tc.avg)
		require.NoError(t, err)
		assert.Equal(t, tc.want, c.Discriminator(), "avg %d", tc.avg)
	}
}

func TestTable(t *testing.T) {
	assert.Equal(t, uint32(0x458be752), buzhashTable[0])
	assert.Equal(t, uint32(0xd95ddf11), buzhashTable[255])

	seen := make(map[uint32]struct{}, len(buzhashTable))
	for _, v := range buzhashTable {
		seen[v] = struct{}{}
	}
	assert.Len(t, seen, 256, "table entries must be distinct")
}

func TestScan_KnownBoundaries(t *testing.T) {
	data := lcgData(1<<18, 1)

	c, err := New(4096)
	require.NoError(t, err)
	ends := boundaries(c, data, []int{len(data)})

	require.Len(t, ends, 74)
	assert.Equal(t, []int{1534, 3381, 5333, 10509, 18603, 22582, 31272, 35250, 48839, 50094, 52559, 60109}, ends[:12])
	assert.Equal(t, 260971, ends[len(ends)-1])

	c, err = New(1024)
	require.NoError(t, err)
	ends = boundaries(c, data, []int{len(data)})
	require.Len(t, ends, 260)
	assert.Equal(t, []int{483, 2245, 4496, 4891, 5834, 6624, 7990, 8705, 9885, 10547, 11043, 11347}, ends[:12])
	assert.Equal(t, 261840, ends[len(ends)-1])
}

func TestScan_NoBoundaryBeforeWindowFills(t *testing.T) {
	c, err := New(MinAvgSize)
	require.NoError(t, err)

	data := lcgData(WindowSize, 7)
	for i := range data {
		assert.Zero(t, c.Scan(data[i:i+1]))
	}
	assert.Zero(t, c.Scan(nil))
}

func TestScan_Deterministic(t *testing.T) {
	data := randomData(t, 1<<20, 42)

	c, err := New(4096)
	require.NoError(t, err)
	want := boundaries(c, data, []int{len(data)})
	require.NotEmpty(t, want)

	slicings := map[string][]int{
		"bytewise":   {1},
		"window":     {WindowSize},
		"odd":        {7, 13, 1, 4099, 47, 49},
		"large":      {64 << 10},
		"sub window": {3, 45, 2, 46},
	}
	for name, pieces := range slicings {
		t.Run(name, func(t *testing.T) {
			c, err := New(4096)
			require.NoError(t, err)
			assert.Equal(t, want, boundaries(c, data, pieces))
		})
	}

	t.Run("reset", func(t *testing.T) {
		c.Reset()
		assert.Equal(t, want, boundaries(c, data, []int{1000}))
	})
}

func TestScan_SizeBounds(t *testing.T) {
	inputs := map[string][]byte{
		"random": randomData(t, 2<<20, 1),
		"zeros":  make([]byte, 1<<20),
		"repeat": bytes.Repeat([]byte("abcdefgh"), 1<<17),
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			c, err := New(4096)
			require.NoError(t, err)
			ends := boundaries(c, data, []int{len(data)})
			require.NotEmpty(t, ends)

			last := 0
			for _, end := range ends {
				size := end - last
				assert.GreaterOrEqual(t, size, c.MinSize())
				assert.LessOrEqual(t, size, c.MaxSize())
				last = end
			}
			assert.LessOrEqual(t, len(data)-last, c.MaxSize())
		})
	}
}

func TestScan_ConstantInput(t *testing.T) {
	c, err := New(4096)
	require.NoError(t, err)
	data := make([]byte, 10*c.MaxSize())
	ends := boundaries(c, data, []int{len(data)})

	// a constant window keeps h constant, so every chunk has the same length
	require.NotEmpty(t, ends)
	step := ends[0]
	for i, end := range ends {
		assert.Equal(t, (i+1)*step, end)
	}
}

func TestScan_AverageSize(t *testing.T) {
	data := randomData(t, 8<<20, 2024)

	c, err := New(4096)
	require.NoError(t, err)
	ends := boundaries(c, data, []int{len(data)})
	require.NotEmpty(t, ends)

	mean := float64(ends[len(ends)-1]) / float64(len(ends))
	assert.InDelta(t, 4096, mean, 4096*0.2, "mean chunk size %.0f", mean)
}

func TestScan_Locality(t *testing.T) {
	data := randomData(t, 1<<20, 7)
	const editAt = 1 << 19

	edited := append([]byte(nil), data...)
	edited[editAt] ^= 0xff

	split := func(d []byte) [][]byte {
		c, err := New(4096)
		require.NoError(t, err)
		var chunks [][]byte
		last := 0
		for _, end := range boundaries(c, d, []int{len(d)}) {
			chunks = append(chunks, d[last:end])
			last = end
		}
		return append(chunks, d[last:])
	}

	orig, changed := split(data), split(edited)

	off := 0
	for i, chunk := range orig {
		if off+len(chunk) > editAt {
			break
		}
		assert.Equal(t, chunk, changed[i], "chunk %d before the edit must not change", i)
		off += len(chunk)
	}

	present := make(map[string]struct{}, len(changed))
	for _, chunk := range changed {
		present[string(chunk)] = struct{}{}
	}
	reused := 0
	for _, chunk := range orig {
		if _, ok := present[string(chunk)]; ok {
			reused++
		}
	}
	assert.GreaterOrEqual(t, float64(reused), 0.9*float64(len(orig)), "reused %d of %d chunks", reused, len(orig))
}

func FuzzScan(f *testing.F) {
	f.Add([]byte("hello world"), uint16(1))
	f.Add(lcgData(4096, 3), uint16(17))
	f.Add(make([]byte, 2048), uint16(48))

	f.Fuzz(func(t *testing.T, data []byte, piece uint16) {
		if piece == 0 {
			piece = 1
		}
		c, err := New(MinAvgSize)
		require.NoError(t, err)
		want := boundaries(c, data, []int{len(data) + 1})

		c.Reset()
		got := boundaries(c, data, []int{int(piece)})
		assert.Equal(t, want, got)

		last := 0
		for _, end := range got {
			assert.GreaterOrEqual(t, end-last, c.MinSize())
			assert.LessOrEqual(t, end-last, c.MaxSize())
			last = end
		}
	})
}

func BenchmarkScan(b *testing.B) {
	data := randomData(b, 8<<20, 1)
	c, err := New(4096)
	require.NoError(b, err)

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Reset()
		rest := data
		for len(rest) > 0 {
			pos := c.Scan(rest)
			if pos == 0 {
				break
			}
			rest = rest[pos:]
		}
	}
}
