package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/tendant/simple-objectstore/pkg/objectstore"
)

// Store is a filesystem implementation of the objectstore.BlobStore
// interface. Blobs live under a content-addressed layout rooted at baseDir:
// the SHA-256 of the object key selects the location, with the first two hex
// characters as a fan-out subdirectory and the full digest as the filename.
type Store struct {
	baseDir string
}

// Config options for the filesystem blob store
type Config struct {
	BaseDir string // Base directory for storing blobs
}

// New creates a new filesystem blob store rooted at config.BaseDir, creating
// the directory if it does not exist.
func New(config Config) (objectstore.BlobStore, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Store{baseDir: config.BaseDir}, nil
}

// Locate returns the absolute blob path for key. It is a pure function of
// the key; equal keys always map to the same path.
func (s *Store) Locate(key string) string {
	sum := sha256.Sum256([]byte(key))
	digest := hex.EncodeToString(sum[:])
	return filepath.Join(s.baseDir, digest[:2], digest)
}

// WriteStream persists reader under key while hashing inline, enforcing
// maxBytes as a hard ceiling checked before each chunk is written. On any
// failure the partial file is removed best-effort.
func (s *Store) WriteStream(ctx context.Context, key string, reader io.Reader, maxBytes int64) (string, int64, error) {
	path := s.Locate(key)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", 0, &objectstore.StorageError{Op: "write", Key: key, Err: err}
	}

	file, err := os.Create(path)
	if err != nil {
		return "", 0, &objectstore.StorageError{Op: "write", Key: key, Err: err}
	}

	abort := func() {
		_ = file.Close()
		_ = os.Remove(path)
	}

	hasher := sha256.New()
	buf := make([]byte, 32*1024)
	var written int64

	for {
		// Each chunk is a suspension point; a cancelled upload abandons the
		// partial file the same way a cap violation does.
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
			if _, writeErr := file.Write(buf[:n]); writeErr != nil {
				abort()
				return "", 0, &objectstore.StorageError{Op: "write", Key: key, Err: writeErr}
			}
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

	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", 0, &objectstore.StorageError{Op: "write", Key: key, Err: err}
	}

	return hex.EncodeToString(hasher.Sum(nil)), written, nil
}

// Open returns a forward-only reader over the blob for key.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	file, err := os.Open(s.Locate(key))
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, objectstore.ErrObjectNotFound
		}
		return nil, &objectstore.StorageError{Op: "open", Key: key, Err: err}
	}
	return file, nil
}

// Delete removes the blob for key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.Locate(key)); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return objectstore.ErrObjectNotFound
		}
		return &objectstore.StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}
