package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-objectstore/pkg/objectstore"
	"github.com/tendant/simple-objectstore/pkg/objectstore/repo/sqlite"
)

func setupCatalog(t *testing.T) objectstore.Catalog {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return sqlite.New(db)
}

func newRecord(key string, size int64, contentType string) *objectstore.ObjectRecord {
	return &objectstore.ObjectRecord{
		ID:          uuid.New().String(),
		Key:         key,
		Size:        size,
		ContentType: contentType,
		ETag:        "etag-" + key,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "metadata.db")

	db, err := sqlite.Open(path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Ping())
}

func TestUpsertAndGet(t *testing.T) {
	catalog := setupCatalog(t)
	ctx := context.Background()

	record := newRecord("docs/readme.txt", 42, "text/plain")
	require.NoError(t, catalog.Upsert(ctx, record))

	got, err := catalog.Get(ctx, "docs/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, record.Key, got.Key)
	assert.Equal(t, record.Size, got.Size)
	assert.Equal(t, record.ContentType, got.ContentType)
	assert.Equal(t, record.ETag, got.ETag)
	assert.WithinDuration(t, record.CreatedAt, got.CreatedAt, time.Microsecond)
}

func TestUpsertReplacesAllFields(t *testing.T) {
	catalog := setupCatalog(t)
	ctx := context.Background()

	require.NoError(t, catalog.Upsert(ctx, newRecord("k", 10, "text/plain")))

	replacement := newRecord("k", 20, "application/json")
	require.NoError(t, catalog.Upsert(ctx, replacement))

	got, err := catalog.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, replacement.ID, got.ID)
	assert.Equal(t, int64(20), got.Size)
	assert.Equal(t, "application/json", got.ContentType)
}

func TestGetMissing(t *testing.T) {
	catalog := setupCatalog(t)

	_, err := catalog.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, objectstore.ErrObjectNotFound)
}

func TestListByPrefix(t *testing.T) {
	catalog := setupCatalog(t)
	ctx := context.Background()

	for _, key := range []string{"a/1", "a/2", "ab/3", "b/4"} {
		require.NoError(t, catalog.Upsert(ctx, newRecord(key, 1, "")))
	}

	t.Run("ordered by key", func(t *testing.T) {
		records, err := catalog.ListByPrefix(ctx, "a", 0)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "a/1", records[0].Key)
		assert.Equal(t, "a/2", records[1].Key)
		assert.Equal(t, "ab/3", records[2].Key)
	})

	t.Run("delimiter-terminated prefix excludes siblings", func(t *testing.T) {
		records, err := catalog.ListByPrefix(ctx, "a/", 0)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("limit caps results", func(t *testing.T) {
		records, err := catalog.ListByPrefix(ctx, "", 2)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("non-positive limit is unbounded", func(t *testing.T) {
		records, err := catalog.ListByPrefix(ctx, "", 0)
		require.NoError(t, err)
		assert.Len(t, records, 4)
	})
}

func TestLikeMetacharactersMatchLiterally(t *testing.T) {
	catalog := setupCatalog(t)
	ctx := context.Background()

	require.NoError(t, catalog.Upsert(ctx, newRecord("report_2024.txt", 1, "")))
	require.NoError(t, catalog.Upsert(ctx, newRecord("reportX2024.txt", 1, "")))
	require.NoError(t, catalog.Upsert(ctx, newRecord("100%/done.txt", 1, "")))

	t.Run("underscore in prefix", func(t *testing.T) {
		records, err := catalog.ListByPrefix(ctx, "report_", 0)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "report_2024.txt", records[0].Key)
	})

	t.Run("percent in prefix", func(t *testing.T) {
		records, err := catalog.ListByPrefix(ctx, "100%/", 0)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "100%/done.txt", records[0].Key)
	})

	t.Run("underscore in search substring", func(t *testing.T) {
		records, err := catalog.Search(ctx, objectstore.SearchQuery{KeyContains: "t_2"})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "report_2024.txt", records[0].Key)
	})
}

func TestSearch(t *testing.T) {
	catalog := setupCatalog(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	put := func(key string, size int64, contentType string, offset time.Duration) {
		record := newRecord(key, size, contentType)
		record.CreatedAt = base.Add(offset)
		require.NoError(t, catalog.Upsert(ctx, record))
	}

	put("small.txt", 10, "text/plain", 0)
	put("medium.txt", 50, "text/plain", time.Second)
	put("large.bin", 200, "application/octet-stream", 2*time.Second)

	t.Run("size window", func(t *testing.T) {
		minSize, maxSize := int64(20), int64(100)
		records, err := catalog.Search(ctx, objectstore.SearchQuery{MinSize: &minSize, MaxSize: &maxSize})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "medium.txt", records[0].Key)
	})

	t.Run("newest first", func(t *testing.T) {
		records, err := catalog.Search(ctx, objectstore.SearchQuery{})
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "large.bin", records[0].Key)
		assert.Equal(t, "medium.txt", records[1].Key)
		assert.Equal(t, "small.txt", records[2].Key)
	})

	t.Run("content type filter", func(t *testing.T) {
		records, err := catalog.Search(ctx, objectstore.SearchQuery{ContentType: "text/plain"})
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("limit applies after ordering", func(t *testing.T) {
		records, err := catalog.Search(ctx, objectstore.SearchQuery{Limit: 1})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "large.bin", records[0].Key)
	})
}

func TestSearchOrderWithSubsecondTimestamps(t *testing.T) {
	catalog := setupCatalog(t)
	ctx := context.Background()

	// Fractional seconds of different precision must still order
	// chronologically; the stored representation is fixed-width.
	base := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	older := newRecord("older", 1, "")
	older.CreatedAt = base.Add(100 * time.Millisecond)
	newer := newRecord("newer", 1, "")
	newer.CreatedAt = base.Add(120 * time.Millisecond)

	require.NoError(t, catalog.Upsert(ctx, older))
	require.NoError(t, catalog.Upsert(ctx, newer))

	records, err := catalog.Search(ctx, objectstore.SearchQuery{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "newer", records[0].Key)
	assert.Equal(t, "older", records[1].Key)
}

func TestDelete(t *testing.T) {
	catalog := setupCatalog(t)
	ctx := context.Background()

	require.NoError(t, catalog.Upsert(ctx, newRecord("k", 1, "")))

	deleted, err := catalog.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = catalog.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = catalog.Get(ctx, "k")
	assert.ErrorIs(t, err, objectstore.ErrObjectNotFound)
}

func TestDeleteByPrefix(t *testing.T) {
	catalog := setupCatalog(t)
	ctx := context.Background()

	for _, key := range []string{"docs/a", "docs/b", "docs2/c"} {
		require.NoError(t, catalog.Upsert(ctx, newRecord(key, 1, "")))
	}

	deleted, err := catalog.DeleteByPrefix(ctx, "docs/")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = catalog.Get(ctx, "docs2/c")
	assert.NoError(t, err)
}

func TestStats(t *testing.T) {
	catalog := setupCatalog(t)
	ctx := context.Background()

	stats, err := catalog.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalObjects)
	assert.Equal(t, int64(0), stats.TotalSize)

	require.NoError(t, catalog.Upsert(ctx, newRecord("a", 5, "")))
	require.NoError(t, catalog.Upsert(ctx, newRecord("b", 7, "")))

	stats, err = catalog.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalObjects)
	assert.Equal(t, int64(12), stats.TotalSize)
}
