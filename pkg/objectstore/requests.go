package objectstore

import "io"

// Request DTOs

// PutObjectRequest contains parameters for uploading an object. Body is read
// exactly once, in a single forward pass.
type PutObjectRequest struct {
	Key         string
	ContentType string
	Body        io.Reader
}

// ListObjectsRequest contains parameters for a prefix listing. Zero values
// fall back to the package defaults (DefaultListLimit, DefaultDelimiter).
type ListObjectsRequest struct {
	Prefix    string
	Delimiter string
	Limit     int
}

// SearchObjectsRequest contains the optional conjunctive search criteria.
// Nil size bounds and empty strings mean "not supplied".
type SearchObjectsRequest struct {
	KeyContains string
	ContentType string
	MinSize     *int64
	MaxSize     *int64
	Limit       int
}
