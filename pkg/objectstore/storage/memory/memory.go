package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path"
	"sync"

	"github.com/tendant/simple-objectstore/pkg/objectstore"
)

// Store is an in-memory implementation of the objectstore.BlobStore
// interface, intended for tests. It mirrors the filesystem layout by keying
// blobs on the same hash-derived location.
type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// New creates a new in-memory blob store
func New() objectstore.BlobStore {
	return &Store{blobs: make(map[string][]byte)}
}

// Locate returns the hash-derived location for key.
func (s *Store) Locate(key string) string {
	sum := sha256.Sum256([]byte(key))
	digest := hex.EncodeToString(sum[:])
	return path.Join(digest[:2], digest)
}

func (s *Store) WriteStream(ctx context.Context, key string, reader io.Reader, maxBytes int64) (string, int64, error) {
	hasher := sha256.New()
	var data bytes.Buffer
	buf := make([]byte, 32*1024)
	var written int64

	// Mirror the filesystem store: a failed write leaves no readable blob at
	// the key, not even prior content.
	abort := func() {
		s.mu.Lock()
		delete(s.blobs, s.Locate(key))
		s.mu.Unlock()
	}

	for {
		if err := ctx.Err(); err != nil {
			abort()
			return "", 0, &objectstore.StorageError{Op: "write", Key: key, Err: err}
		}

		n, readErr := reader.Read(buf)
		if n > 0 {
			if maxBytes > 0 && written+int64(n) > maxBytes {
				abort()
				return "", 0, &objectstore.PayloadTooLargeError{Limit: maxBytes}
			}
			data.Write(buf[:n])
			hasher.Write(buf[:n])
			written += int64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			abort()
			return "", 0, &objectstore.StorageError{Op: "write", Key: key, Err: readErr}
		}
	}

	s.mu.Lock()
	s.blobs[s.Locate(key)] = data.Bytes()
	s.mu.Unlock()

	return hex.EncodeToString(hasher.Sum(nil)), written, nil
}

func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.blobs[s.Locate(key)]
	s.mu.RUnlock()

	if !ok {
		return nil, objectstore.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc := s.Locate(key)
	if _, ok := s.blobs[loc]; !ok {
		return objectstore.ErrObjectNotFound
	}
	delete(s.blobs, loc)
	return nil
}
