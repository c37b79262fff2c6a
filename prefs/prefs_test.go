package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	for _, backend := range []string{BackendFile, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prefs."+backend)

			s, err := Open(backend, path)
			require.NoError(t, err)

			v, err := s.Bool("premium")
			require.NoError(t, err)
			assert.False(t, v)

			require.NoError(t, s.SetBool("premium", true))
			require.NoError(t, s.SetBool("premium", true))
			require.NoError(t, s.Close())

			reopened, err := Open(backend, path)
			require.NoError(t, err)
			defer reopened.Close()

			v, err = reopened.Bool("premium")
			require.NoError(t, err)
			assert.True(t, v)

			require.NoError(t, reopened.SetBool("premium", false))
			v, err = reopened.Bool("premium")
			require.NoError(t, err)
			assert.False(t, v)
		})
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestFileStoreWriteFailureKeepsValue(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	// parent of the prefs path is a regular file, so saving must fail
	s, err := NewFileStore(filepath.Join(blocker, "prefs.json"))
	require.NoError(t, err)
	assert.Error(t, s.SetBool("premium", true))

	v, err := s.Bool("premium")
	require.NoError(t, err)
	assert.False(t, v)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("etcd", "x")
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
