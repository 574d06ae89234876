package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-objectstore/pkg/objectstore"
	memoryrepo "github.com/tendant/simple-objectstore/pkg/objectstore/repo/memory"
	"github.com/tendant/simple-objectstore/pkg/objectstore/repo/postgres"
	"github.com/tendant/simple-objectstore/pkg/objectstore/repo/sqlite"
	fsstorage "github.com/tendant/simple-objectstore/pkg/objectstore/storage/fs"
	memorystorage "github.com/tendant/simple-objectstore/pkg/objectstore/storage/memory"
	s3storage "github.com/tendant/simple-objectstore/pkg/objectstore/storage/s3"
)

// ServerConfig holds the full server configuration, loaded from environment
// variables.
type ServerConfig struct {
	Host        string `env:"SERVER_HOST" env-default:"127.0.0.1"`
	Port        string `env:"SERVER_PORT" env-default:"3000"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	AuthToken string `env:"AUTH_TOKEN"`

	StorageBackend string `env:"STORAGE_BACKEND" env-default:"fs"`
	StoragePath    string `env:"STORAGE_PATH" env-default:"./data/objects"`

	CatalogDriver string `env:"CATALOG_DRIVER" env-default:"sqlite"`
	DatabasePath  string `env:"DATABASE_PATH" env-default:"./data/metadata.db"`
	DatabaseURL   string `env:"DATABASE_URL"`

	MaxUploadSizeMB int64 `env:"MAX_UPLOAD_SIZE_MB" env-default:"100"`

	// RateLimit bounds the number of in-flight requests admitted at once.
	RateLimit int `env:"RATE_LIMIT" env-default:"100"`

	RequestTimeoutSeconds int `env:"REQUEST_TIMEOUT_SECONDS" env-default:"60"`

	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"console"`

	S3 S3Config
}

// S3Config holds S3 blob store settings, used when STORAGE_BACKEND=s3.
type S3Config struct {
	Region                 string `env:"S3_REGION" env-default:"us-east-1"`
	Bucket                 string `env:"S3_BUCKET"`
	AccessKeyID            string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey        string `env:"S3_SECRET_ACCESS_KEY"`
	Endpoint               string `env:"S3_ENDPOINT"`
	UsePathStyle           bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
	CreateBucketIfNotExist bool   `env:"S3_CREATE_BUCKET_IF_NOT_EXIST" env-default:"false"`
}

// Load reads the server configuration from the environment.
func Load() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for inconsistencies before any component
// is built.
func (c *ServerConfig) Validate() error {
	if c.AuthToken == "" {
		return errors.New("AUTH_TOKEN is required")
	}

	switch c.StorageBackend {
	case "fs", "memory":
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 storage backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.StorageBackend)
	}

	switch c.CatalogDriver {
	case "sqlite", "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres catalog")
		}
	default:
		return fmt.Errorf("unknown catalog driver: %s", c.CatalogDriver)
	}

	return nil
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// MaxUploadBytes converts the configured megabyte cap to bytes.
func (c *ServerConfig) MaxUploadBytes() int64 {
	return c.MaxUploadSizeMB * 1024 * 1024
}

// BuildBlobStore constructs the configured blob store.
func (c *ServerConfig) BuildBlobStore(ctx context.Context) (objectstore.BlobStore, error) {
	switch c.StorageBackend {
	case "fs":
		return fsstorage.New(fsstorage.Config{BaseDir: c.StoragePath})
	case "memory":
		return memorystorage.New(), nil
	case "s3":
		return s3storage.New(ctx, s3storage.Config{
			Region:                 c.S3.Region,
			Bucket:                 c.S3.Bucket,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UsePathStyle:           c.S3.UsePathStyle,
			CreateBucketIfNotExist: c.S3.CreateBucketIfNotExist,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", c.StorageBackend)
	}
}

// BuildCatalog constructs the configured metadata catalog.
func (c *ServerConfig) BuildCatalog(ctx context.Context) (objectstore.Catalog, error) {
	switch c.CatalogDriver {
	case "sqlite":
		db, err := sqlite.Open(c.DatabasePath)
		if err != nil {
			return nil, err
		}
		return sqlite.New(db), nil
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("create connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		if err := postgres.InitSchema(ctx, pool); err != nil {
			return nil, err
		}
		return postgres.NewWithPool(pool), nil
	case "memory":
		return memoryrepo.New(), nil
	default:
		return nil, fmt.Errorf("unknown catalog driver: %s", c.CatalogDriver)
	}
}

// BuildService wires the catalog and blob store into a service.
func (c *ServerConfig) BuildService(ctx context.Context) (objectstore.Service, error) {
	catalog, err := c.BuildCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}

	blobs, err := c.BuildBlobStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("build blob store: %w", err)
	}

	return objectstore.New(
		objectstore.WithCatalog(catalog),
		objectstore.WithBlobStore(blobs),
		objectstore.WithMaxUploadBytes(c.MaxUploadBytes()),
	)
}
