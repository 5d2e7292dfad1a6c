package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.pid")
	require.NoError(t, os.WriteFile(path, []byte("1234\n"), 0644))
	pid, err := ReadPidFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1234, pid)

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))
	_, err = ReadPidFile(path)
	assert.Error(t, err)
}

func TestCheckStalePid(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, CheckStalePid(filepath.Join(dir, "none.pid")))

	live := filepath.Join(dir, "live.pid")
	require.NoError(t, os.WriteFile(live, []byte(strconv.Itoa(os.Getpid())), 0644))
	assert.ErrorIs(t, CheckStalePid(live), ErrAlreadyRunning)
	assert.FileExists(t, live)

	garbage := filepath.Join(dir, "garbage.pid")
	require.NoError(t, os.WriteFile(garbage, []byte("not a pid"), 0644))
	assert.NoError(t, CheckStalePid(garbage))
	assert.NoFileExists(t, garbage)
}

func TestWasReborn(t *testing.T) {
	assert.False(t, WasReborn())
}
