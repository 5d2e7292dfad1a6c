package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhengshuai-xiao/xbackup/pkg/store"
)

func testManifest() *Manifest {
	a, b := store.DigestOf([]byte("a")), store.DigestOf([]byte("b"))
	return &Manifest{
		ID:          uuid.New(),
		Name:        "disk.img",
		Created:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		ChunkMethod: "buzhash:4.0MiB",
		Size:        30,
		Entries: []Entry{
			{Offset: 0, Length: 10, Digest: a},
			{Offset: 10, Length: 10, Digest: b},
			{Offset: 20, Length: 10, Digest: a},
		},
	}
}

func TestManifest_Validate(t *testing.T) {
	assert.NoError(t, testManifest().Validate())
	assert.NoError(t, (&Manifest{}).Validate())

	testCases := map[string]func(m *Manifest){
		"gap":          func(m *Manifest) { m.Entries[1].Offset = 11 },
		"overlap":      func(m *Manifest) { m.Entries[2].Offset = 19 },
		"zero length":  func(m *Manifest) { m.Entries[0].Length = 0 },
		"short size":   func(m *Manifest) { m.Size = 29 },
		"missing tail": func(m *Manifest) { m.Entries = m.Entries[:2] },
	}
	for name, mutate := range testCases {
		t.Run(name, func(t *testing.T) {
			m := testManifest()
			mutate(m)
			assert.ErrorIs(t, m.Validate(), ErrInvalidManifest)
		})
	}
}

func TestManifest_UniqueDigests(t *testing.T) {
	m := testManifest()
	assert.Equal(t, []store.Digest{m.Entries[0].Digest, m.Entries[1].Digest}, m.UniqueDigests())
}

func TestManifest_WriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img.manifest")
	m := testManifest()

	require.NoError(t, WriteManifest(path, m))
	got, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), m.Entries[0].Digest.String())
	assert.Contains(t, string(raw), m.ID.String())
}

func TestReadManifest_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadManifest(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	garbage := filepath.Join(dir, "garbage")
	require.NoError(t, os.WriteFile(garbage, []byte("{not json"), 0644))
	_, err = ReadManifest(garbage)
	assert.ErrorIs(t, err, ErrInvalidManifest)

	m := testManifest()
	m.Size = 100
	bad := filepath.Join(dir, "bad")
	require.NoError(t, WriteManifest(bad, m))
	_, err = ReadManifest(bad)
	assert.ErrorIs(t, err, ErrInvalidManifest)
}
