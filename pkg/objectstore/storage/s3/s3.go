package s3

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/tendant/simple-objectstore/pkg/objectstore"
)

// Config options for the S3 blob store
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)

	// MinIO/S3-compatible service options
	CreateBucketIfNotExist bool // Create bucket if it doesn't exist
}

// Store is an S3-compatible implementation of the objectstore.BlobStore
// interface. Objects are stored under the same hash-derived fan-out layout
// the filesystem store uses, with the layout path as the S3 object key.
type Store struct {
	client *s3.Client
	bucket string
}

// New creates a new S3-compatible blob store
func New(ctx context.Context, config Config) (objectstore.BlobStore, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	if config.Region == "" {
		config.Region = "us-east-1"
	}

	var awsCfg aws.Config
	var err error

	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(config.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				config.AccessKeyID,
				config.SecretAccessKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(config.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}

	store := &Store{
		client: s3.NewFromConfig(awsCfg, s3Options...),
		bucket: config.Bucket,
	}

	if config.CreateBucketIfNotExist {
		if err := store.createBucketIfNotExists(ctx, config.Region); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return store, nil
}

func (s *Store) createBucketIfNotExists(ctx context.Context, region string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	createInput := &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	}
	if region != "us-east-1" {
		createInput.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}

	if _, err := s.client.CreateBucket(ctx, createInput); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return err
	}
	return nil
}

// Locate returns the S3 object key for an object store key.
func (s *Store) Locate(key string) string {
	sum := sha256.Sum256([]byte(key))
	digest := hex.EncodeToString(sum[:])
	return path.Join(digest[:2], digest)
}

// cappedReader enforces the byte ceiling before handing any over-limit chunk
// to the uploader, and records the violation so it survives SDK wrapping.
type cappedReader struct {
	reader io.Reader
	max    int64
	read   int64
	err    error
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	if n > 0 && c.max > 0 && c.read+int64(n) > c.max {
		c.err = &objectstore.PayloadTooLargeError{Limit: c.max}
		return 0, c.err
	}
	c.read += int64(n)
	return n, err
}

// WriteStream uploads reader to S3 under the key's hash-derived location,
// hashing inline. A cap violation or upload failure aborts the upload; any
// partially visible object is removed best-effort.
func (s *Store) WriteStream(ctx context.Context, key string, reader io.Reader, maxBytes int64) (string, int64, error) {
	loc := s.Locate(key)

	hasher := sha256.New()
	capped := &cappedReader{reader: reader, max: maxBytes}

	uploader := manager.NewUploader(s.client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(loc),
		Body:   io.TeeReader(capped, hasher),
	})
	if err != nil {
		_, _ = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(loc),
		})
		if capped.err != nil {
			return "", 0, capped.err
		}
		return "", 0, &objectstore.StorageError{Op: "write", Key: key, Err: err}
	}

	return hex.EncodeToString(hasher.Sum(nil)), capped.read, nil
}

// Open returns a forward-only reader over the stored bytes.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Locate(key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, objectstore.ErrObjectNotFound
		}
		return nil, &objectstore.StorageError{Op: "open", Key: key, Err: err}
	}
	return result.Body, nil
}

// Delete removes the stored bytes. S3 deletes are silent on missing keys, so
// existence is checked first to honor the BlobStore contract.
func (s *Store) Delete(ctx context.Context, key string) error {
	loc := s.Locate(key)

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(loc),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return objectstore.ErrObjectNotFound
		}
		return &objectstore.StorageError{Op: "delete", Key: key, Err: err}
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(loc),
	}); err != nil {
		return &objectstore.StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}
