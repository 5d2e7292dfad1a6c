package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_POSIX(t *testing.T) {
	conf := NewConfig()
	conf.Path = t.TempDir()

	st, err := Open(context.Background(), conf)
	require.NoError(t, err)
	defer st.Close()

	assert.IsType(t, &IndexedStore{}, st)
	assert.Contains(t, st.Name(), conf.Path)

	ctx := context.Background()
	data := []byte("opened through the factory")
	d := DigestOf(data)
	exists, _, err := st.Insert(ctx, d, data)
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := st.Get(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestOpen_NoCache(t *testing.T) {
	conf := NewConfig()
	conf.Path = t.TempDir()
	conf.CacheSize = 0
	conf.Compression = "none"

	st, err := Open(context.Background(), conf)
	require.NoError(t, err)
	assert.IsType(t, &POSIXStore{}, st)
}

func TestOpen_Errors(t *testing.T) {
	conf := NewConfig()
	conf.Path = t.TempDir()
	conf.Backend = "tape"
	_, err := Open(context.Background(), conf)
	assert.ErrorIs(t, err, ErrUnknownBackend)

	conf = NewConfig()
	conf.Path = t.TempDir()
	conf.Compression = "lzma"
	_, err = Open(context.Background(), conf)
	assert.Error(t, err)
}
