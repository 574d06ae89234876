package fs_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-objectstore/pkg/objectstore"
	"github.com/tendant/simple-objectstore/pkg/objectstore/storage/fs"
)

func newTestStore(t *testing.T) objectstore.BlobStore {
	t.Helper()
	store, err := fs.New(fs.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	return store
}

func TestNew(t *testing.T) {
	t.Run("empty base dir rejected", func(t *testing.T) {
		_, err := fs.New(fs.Config{})
		assert.Error(t, err)
	})

	t.Run("base dir is created", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "blobs")
		_, err := fs.New(fs.Config{BaseDir: dir})
		require.NoError(t, err)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	store, err := fs.New(fs.Config{BaseDir: dir})
	require.NoError(t, err)

	// The location is derived from the key hash, not the key itself, so
	// slashes and other path characters in keys never shape the layout.
	path := store.Locate("docs/some file %with& chars.txt")
	assert.Equal(t, path, store.Locate("docs/some file %with& chars.txt"))
	assert.NotEqual(t, path, store.Locate("docs/other.txt"))

	rel, err := filepath.Rel(dir, path)
	require.NoError(t, err)

	parts := strings.Split(rel, string(filepath.Separator))
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 2)
	assert.Len(t, parts[1], 64)
	assert.Equal(t, parts[1][:2], parts[0])
}

func TestWriteStreamRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	content := "streamed blob content"
	etag, size, err := store.WriteStream(ctx, "blob.txt", strings.NewReader(content), 0)
	require.NoError(t, err)

	sum := sha256.Sum256([]byte(content))
	assert.Equal(t, hex.EncodeToString(sum[:]), etag)
	assert.Equal(t, int64(len(content)), size)

	reader, err := store.Open(ctx, "blob.txt")
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestWriteStreamSizeCap(t *testing.T) {
	ctx := context.Background()

	t.Run("over the cap leaves nothing readable", func(t *testing.T) {
		store := newTestStore(t)

		_, _, err := store.WriteStream(ctx, "big.bin", strings.NewReader("0123456789"), 5)
		require.Error(t, err)
		assert.ErrorIs(t, err, objectstore.ErrPayloadTooLarge)

		_, err = store.Open(ctx, "big.bin")
		assert.ErrorIs(t, err, objectstore.ErrObjectNotFound)

		_, err = os.Stat(store.Locate("big.bin"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("exactly at the cap succeeds", func(t *testing.T) {
		store := newTestStore(t)

		_, size, err := store.WriteStream(ctx, "exact.bin", strings.NewReader("01234"), 5)
		require.NoError(t, err)
		assert.Equal(t, int64(5), size)
	})

	t.Run("zero cap means unlimited", func(t *testing.T) {
		store := newTestStore(t)

		payload := strings.Repeat("x", 256*1024)
		_, size, err := store.WriteStream(ctx, "large.bin", strings.NewReader(payload), 0)
		require.NoError(t, err)
		assert.Equal(t, int64(len(payload)), size)
	})
}

func TestWriteStreamCancellation(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := store.WriteStream(ctx, "cancelled.bin", strings.NewReader("data"), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(store.Locate("cancelled.bin"))
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestWriteStreamReaderFailure(t *testing.T) {
	store := newTestStore(t)

	reader := io.MultiReader(strings.NewReader("partial"), iotestErrReader{})
	_, _, err := store.WriteStream(context.Background(), "broken.bin", reader, 0)
	require.Error(t, err)

	var storageErr *objectstore.StorageError
	assert.ErrorAs(t, err, &storageErr)

	_, statErr := os.Stat(store.Locate("broken.bin"))
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestWriteStreamOverwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.WriteStream(ctx, "dup.txt", strings.NewReader("first version"), 0)
	require.NoError(t, err)

	etag, size, err := store.WriteStream(ctx, "dup.txt", strings.NewReader("v2"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)

	sum := sha256.Sum256([]byte("v2"))
	assert.Equal(t, hex.EncodeToString(sum[:]), etag)

	reader, err := store.Open(ctx, "dup.txt")
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.WriteStream(ctx, "victim.txt", strings.NewReader("data"), 0)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "victim.txt"))
	assert.ErrorIs(t, store.Delete(ctx, "victim.txt"), objectstore.ErrObjectNotFound)

	_, err = store.Open(ctx, "victim.txt")
	assert.ErrorIs(t, err, objectstore.ErrObjectNotFound)
}

func TestOpenMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Open(context.Background(), "no-such-key")
	assert.ErrorIs(t, err, objectstore.ErrObjectNotFound)
}

type iotestErrReader struct{}

func (iotestErrReader) Read([]byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}
