package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	catalog        Catalog
	blobs          BlobStore
	maxUploadBytes int64
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithCatalog sets the metadata catalog for the service
func WithCatalog(catalog Catalog) Option {
	return func(s *service) {
		s.catalog = catalog
	}
}

// WithBlobStore sets the blob storage backend for the service
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobs = store
	}
}

// WithMaxUploadBytes sets the hard upload size cap in bytes. Zero or less
// disables the cap.
func WithMaxUploadBytes(n int64) Option {
	return func(s *service) {
		s.maxUploadBytes = n
	}
}

// New creates a new service instance with the given options. A catalog and a
// blob store are required.
func New(options ...Option) (Service, error) {
	s := &service{}

	for _, option := range options {
		option(s)
	}

	if s.catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if s.blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}

	return s, nil
}

func (s *service) PutObject(ctx context.Context, req PutObjectRequest) (*ObjectRecord, error) {
	if req.Key == "" {
		return nil, fmt.Errorf("object key is required")
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}

	etag, size, err := s.blobs.WriteStream(ctx, req.Key, req.Body, s.maxUploadBytes)
	if err != nil {
		// No catalog mutation on a failed write; an earlier record at this
		// key stays as it was.
		return nil, err
	}

	record := &ObjectRecord{
		ID:          uuid.New().String(),
		Key:         req.Key,
		Size:        size,
		ContentType: contentType,
		ETag:        etag,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.catalog.Upsert(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

func (s *service) GetObject(ctx context.Context, key string) (*ObjectRecord, io.ReadCloser, error) {
	record, err := s.catalog.Get(ctx, key)
	if err != nil {
		return nil, nil, err
	}

	reader, err := s.blobs.Open(ctx, key)
	if err != nil {
		return nil, nil, err
	}

	return record, reader, nil
}

func (s *service) GetObjectRecord(ctx context.Context, key string) (*ObjectRecord, error) {
	return s.catalog.Get(ctx, key)
}

func (s *service) GetObjectInfo(ctx context.Context, key string) (*ObjectInfo, error) {
	record, err := s.catalog.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	return &ObjectInfo{
		Record: record,
		Path:   s.blobs.Locate(key),
	}, nil
}

func (s *service) ListObjects(ctx context.Context, req ListObjectsRequest) (*ListObjectsResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	delimiter := req.Delimiter
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}

	records, err := s.catalog.ListByPrefix(ctx, req.Prefix, limit)
	if err != nil {
		return nil, err
	}

	objects := make([]*ObjectRecord, 0, len(records))
	folders := make(map[string]struct{})

	for _, record := range records {
		rest, ok := strings.CutPrefix(record.Key, req.Prefix)
		if !ok {
			continue
		}
		if idx := strings.Index(rest, delimiter); idx >= 0 {
			folders[req.Prefix+rest[:idx]+delimiter] = struct{}{}
		} else {
			objects = append(objects, record)
		}
	}

	prefixes := make([]string, 0, len(folders))
	for folder := range folders {
		prefixes = append(prefixes, folder)
	}
	sort.Strings(prefixes)

	return &ListObjectsResult{
		Objects:  objects,
		Total:    len(objects),
		Prefixes: prefixes,
	}, nil
}

func (s *service) SearchObjects(ctx context.Context, req SearchObjectsRequest) (*SearchObjectsResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	records, err := s.catalog.Search(ctx, SearchQuery{
		KeyContains: req.KeyContains,
		ContentType: req.ContentType,
		MinSize:     req.MinSize,
		MaxSize:     req.MaxSize,
		Limit:       limit,
	})
	if err != nil {
		return nil, err
	}

	if records == nil {
		records = make([]*ObjectRecord, 0)
	}

	return &SearchObjectsResult{
		Objects: records,
		Total:   len(records),
	}, nil
}

func (s *service) DeleteObject(ctx context.Context, key string) error {
	// The catalog decides whether the object exists; a blob that is already
	// gone must not block cleanup of the row.
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return err
	}

	deleted, err := s.catalog.Delete(ctx, key)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("delete %q: %w", key, ErrObjectNotFound)
	}

	return nil
}

func (s *service) DeleteFolder(ctx context.Context, prefix string) (int64, error) {
	// Force a trailing delimiter so "docs" cannot match a sibling like
	// "docs2/file".
	if !strings.HasSuffix(prefix, DefaultDelimiter) {
		prefix += DefaultDelimiter
	}

	records, err := s.catalog.ListByPrefix(ctx, prefix, 0)
	if err != nil {
		return 0, err
	}

	for _, record := range records {
		if err := s.blobs.Delete(ctx, record.Key); err != nil && !errors.Is(err, ErrObjectNotFound) {
			return 0, err
		}
	}

	return s.catalog.DeleteByPrefix(ctx, prefix)
}

func (s *service) Stats(ctx context.Context) (StoreStats, error) {
	return s.catalog.Stats(ctx)
}
