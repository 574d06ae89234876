package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-objectstore/pkg/objectstore"
	"github.com/tendant/simple-objectstore/pkg/objectstore/repo/memory"
)

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

func TestUpsertAndGet(t *testing.T) {
	catalog := memory.New()
	ctx := context.Background()

	record := newRecord("docs/readme.txt", 42, "text/plain")
	require.NoError(t, catalog.Upsert(ctx, record))

	got, err := catalog.Get(ctx, "docs/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, record.ETag, got.ETag)

	// Stored records are copies; mutating the caller's struct afterwards
	// must not bleed into the catalog.
	record.Size = 9999
	got, err = catalog.Get(ctx, "docs/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Size)
}

func TestUpsertReplacesAllFields(t *testing.T) {
	catalog := memory.New()
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
	catalog := memory.New()

	_, err := catalog.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, objectstore.ErrObjectNotFound)
}

func TestListByPrefix(t *testing.T) {
	catalog := memory.New()
	ctx := context.Background()

	for _, key := range []string{"a/1", "a/2", "ab/3", "b/4"} {
		require.NoError(t, catalog.Upsert(ctx, newRecord(key, 1, "")))
	}

	t.Run("prefix is a raw string match", func(t *testing.T) {
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
		require.Len(t, records, 2)
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

func TestSearch(t *testing.T) {
	catalog := memory.New()
	ctx := context.Background()

	require.NoError(t, catalog.Upsert(ctx, newRecord("small.txt", 10, "text/plain")))
	require.NoError(t, catalog.Upsert(ctx, newRecord("medium.txt", 50, "text/plain")))
	require.NoError(t, catalog.Upsert(ctx, newRecord("large.bin", 200, "application/octet-stream")))

	t.Run("size window", func(t *testing.T) {
		minSize, maxSize := int64(20), int64(100)
		records, err := catalog.Search(ctx, objectstore.SearchQuery{MinSize: &minSize, MaxSize: &maxSize})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "medium.txt", records[0].Key)
	})

	t.Run("filters combine conjunctively", func(t *testing.T) {
		minSize := int64(20)
		records, err := catalog.Search(ctx, objectstore.SearchQuery{
			KeyContains: ".txt",
			ContentType: "text/plain",
			MinSize:     &minSize,
		})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "medium.txt", records[0].Key)
	})

	t.Run("empty query matches everything", func(t *testing.T) {
		records, err := catalog.Search(ctx, objectstore.SearchQuery{})
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})

	t.Run("limit applies after filtering", func(t *testing.T) {
		records, err := catalog.Search(ctx, objectstore.SearchQuery{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})
}

func TestDelete(t *testing.T) {
	catalog := memory.New()
	ctx := context.Background()

	require.NoError(t, catalog.Upsert(ctx, newRecord("k", 1, "")))

	deleted, err := catalog.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = catalog.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteByPrefix(t *testing.T) {
	catalog := memory.New()
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
	catalog := memory.New()
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
