package objectstore

import (
	"context"
	"io"
)

// BlobStore defines the interface for durable byte storage addressed by
// object key. Implementations derive the storage location deterministically
// from the key (SHA-256 fan-out layout), so no separate location index is
// needed.
type BlobStore interface {
	// Locate returns the backend-specific location for a key. It is a pure
	// function of the key and never fails.
	Locate(key string) string

	// WriteStream consumes reader until exhaustion, persisting the bytes
	// under key while folding them into a running SHA-256. The moment the
	// cumulative size would exceed maxBytes the write is aborted, any
	// partial data is removed, and a PayloadTooLargeError is returned; the
	// cap is a hard ceiling never exceeded by a single byte. On success it
	// returns the hex-encoded content hash and the total byte count.
	WriteStream(ctx context.Context, key string, reader io.Reader, maxBytes int64) (etag string, size int64, err error)

	// Open returns a forward-only reader over the stored bytes. It returns
	// ErrObjectNotFound when no blob exists for the key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the stored bytes. It returns ErrObjectNotFound when no
	// blob exists for the key.
	Delete(ctx context.Context, key string) error
}

// Catalog defines the interface for the authoritative metadata index.
type Catalog interface {
	// Upsert inserts the record or, if a row for record.Key already exists,
	// replaces all non-key fields in a single statement.
	Upsert(ctx context.Context, record *ObjectRecord) error

	// Get returns the record for key, or ErrObjectNotFound if absent.
	Get(ctx context.Context, key string) (*ObjectRecord, error)

	// ListByPrefix returns records whose key starts with prefix (all records
	// when prefix is empty), ordered lexicographically by key. A limit of
	// zero or less means no cap.
	ListByPrefix(ctx context.Context, prefix string, limit int) ([]*ObjectRecord, error)

	// Search evaluates the conjunctive filter, ordered by creation time
	// descending and capped at the query limit.
	Search(ctx context.Context, query SearchQuery) ([]*ObjectRecord, error)

	// Delete removes the row for key and reports whether a row was actually
	// removed, so the caller can distinguish "removed now" from "already
	// gone".
	Delete(ctx context.Context, key string) (bool, error)

	// DeleteByPrefix removes every row whose key starts with prefix and
	// returns the count removed. Zero is a valid, non-error result.
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)

	// Stats returns the count and total size of all live records.
	Stats(ctx context.Context) (StoreStats, error)
}

// Service is the coordinating layer between the blob store and the catalog.
// It is the only layer that converts an absence into the user-facing
// NotFound outcome, and the only layer that decides a partial write must be
// rolled back.
type Service interface {
	// PutObject streams the request body into the blob store under the
	// configured size cap, then upserts a catalog record built from the
	// resulting hash and size. A failed write leaves no catalog mutation; a
	// previous record at the same key survives a failed overwrite attempt.
	PutObject(ctx context.Context, req PutObjectRequest) (*ObjectRecord, error)

	// GetObject returns the catalog record and an open reader over the blob
	// bytes. The blob is never consulted when the record is missing.
	GetObject(ctx context.Context, key string) (*ObjectRecord, io.ReadCloser, error)

	// GetObjectRecord returns the catalog record only (HEAD semantics).
	GetObjectRecord(ctx context.Context, key string) (*ObjectRecord, error)

	// GetObjectInfo returns the catalog record plus the resolved blob
	// location.
	GetObjectInfo(ctx context.Context, key string) (*ObjectInfo, error)

	// ListObjects fetches catalog records under the request prefix and
	// derives virtual folders by splitting at the first delimiter occurrence
	// past the prefix.
	ListObjects(ctx context.Context, req ListObjectsRequest) (*ListObjectsResult, error)

	// SearchObjects is a passthrough to the catalog's conjunctive filter.
	SearchObjects(ctx context.Context, req SearchObjectsRequest) (*SearchObjectsResult, error)

	// DeleteObject removes the blob (tolerating it already being absent) and
	// then the catalog row. If the row is also absent the whole operation
	// reports ErrObjectNotFound.
	DeleteObject(ctx context.Context, key string) error

	// DeleteFolder normalizes prefix to end with the delimiter, deletes every
	// blob enumerated from the catalog under it (missing blobs tolerated),
	// then bulk-deletes the matching rows. Returns the count of rows removed.
	DeleteFolder(ctx context.Context, prefix string) (int64, error)

	// Stats returns catalog aggregates.
	Stats(ctx context.Context) (StoreStats, error)
}
