package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelplane/modelplane/pkg/contract"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "artifacts"))
	require.Nil(t, err)
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newStore(t)

	location, err := store.Put([]byte("model-bytes"))
	require.Nil(t, err)
	require.NotEmpty(t, location)

	data, err := store.Get(location)
	require.Nil(t, err)
	assert.Equal(t, []byte("model-bytes"), data)
	assert.True(t, store.Exists(location))
}

func TestPutIsContentAddressed(t *testing.T) {
	store := newStore(t)

	first, err := store.Put([]byte("same-bytes"))
	require.Nil(t, err)
	second, err := store.Put([]byte("same-bytes"))
	require.Nil(t, err)
	assert.Equal(t, first, second)

	other, err := store.Put([]byte("different-bytes"))
	require.Nil(t, err)
	assert.NotEqual(t, first, other)
}

func TestPutShardsByPrefix(t *testing.T) {
	store := newStore(t)

	location, err := store.Put([]byte("model-bytes"))
	require.Nil(t, err)

	_, statErr := os.Stat(filepath.Join(store.root, location[:2], location))
	assert.NoError(t, statErr)
}

func TestGetMissingArtifact(t *testing.T) {
	store := newStore(t)

	_, err := store.Get("0000000000000000000000000000000000000000000000000000000000000000")
	require.NotNil(t, err)
	assert.Equal(t, contract.ErrorCodeNotFound, err.Code)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newStore(t)

	location, err := store.Put([]byte("model-bytes"))
	require.Nil(t, err)

	require.Nil(t, store.Delete(location))
	assert.False(t, store.Exists(location))

	// Deleting an absent blob is not an error.
	require.Nil(t, store.Delete(location))
}

func TestValidLocation(t *testing.T) {
	assert.Error(t, ValidLocation(""))
	assert.NoError(t, ValidLocation("abc123"))
}
