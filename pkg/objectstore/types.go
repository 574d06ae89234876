package objectstore

import "time"

// Defaults applied by the service when a request omits the field.
const (
	DefaultListLimit   = 1000
	DefaultSearchLimit = 100
	DefaultDelimiter   = "/"
	DefaultContentType = "application/octet-stream"
)

// ObjectRecord is the catalog row describing one live object key.
//
// Size and ETag always reflect the bytes written to the blob store by the
// upload that produced this record. ETag is the hex-encoded SHA-256 of the
// object content, computed during the upload pass.
type ObjectRecord struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	ETag        string    `json:"etag"`
	CreatedAt   time.Time `json:"created_at"`
}

// ObjectInfo pairs a catalog record with the resolved blob location.
type ObjectInfo struct {
	Record *ObjectRecord `json:"metadata"`
	Path   string        `json:"path"`
}

// ListObjectsResult is the outcome of a prefix listing with folder emulation.
// Objects holds the direct (leaf) matches; Prefixes holds the synthesized
// folder names, sorted and deduplicated. Total counts leaves only.
type ListObjectsResult struct {
	Objects  []*ObjectRecord `json:"objects"`
	Total    int             `json:"total"`
	Prefixes []string        `json:"prefixes"`
}

// SearchObjectsResult is the outcome of a catalog search.
type SearchObjectsResult struct {
	Objects []*ObjectRecord `json:"objects"`
	Total   int             `json:"total"`
}

// StoreStats aggregates the live catalog.
type StoreStats struct {
	TotalObjects int64 `json:"total_objects"`
	TotalSize    int64 `json:"total_size"`
}

// SearchQuery is the conjunctive filter evaluated by a catalog. A record
// qualifies only if it matches every supplied criterion. Zero-valued string
// fields and nil size bounds mean "not supplied". A Limit of zero or less
// falls back to DefaultSearchLimit.
type SearchQuery struct {
	KeyContains string
	ContentType string
	MinSize     *int64
	MaxSize     *int64
	Limit       int
}
