package objectstore

import (
	"errors"
	"fmt"
)

// Sentinel errors callers can branch on with errors.Is.
var (
	// ErrObjectNotFound indicates no live record or blob exists for a key.
	ErrObjectNotFound = errors.New("object not found")

	// ErrPayloadTooLarge indicates an upload stream exceeded the configured cap.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// PayloadTooLargeError reports a rejected upload along with the byte limit
// that was exceeded. It matches ErrPayloadTooLarge via errors.Is.
type PayloadTooLargeError struct {
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("payload exceeds maximum allowed size: %d bytes", e.Limit)
}

func (e *PayloadTooLargeError) Is(target error) bool {
	return target == ErrPayloadTooLarge
}

// StorageError represents a blob store operation that failed for reasons
// other than absence (disk full, permissions, connection loss).
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// CatalogError represents a metadata catalog operation that failed at the
// database level.
type CatalogError struct {
	Op  string
	Key string
	Err error
}

func (e *CatalogError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("catalog operation %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("catalog operation %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}
