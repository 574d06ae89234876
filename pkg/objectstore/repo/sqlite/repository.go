package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tendant/simple-objectstore/pkg/objectstore"
)

// Repository implements objectstore.Catalog using an embedded SQLite
// database. Timestamps are persisted as RFC 3339 strings.
type Repository struct {
	db *sql.DB
}

// Open opens (creating if missing) the SQLite database at path, ensures the
// parent directory exists, and applies the schema. The returned handle is
// safe for concurrent use and should be shared process-wide.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// New creates a new SQLite catalog on top of an opened database handle.
func New(db *sql.DB) objectstore.Catalog {
	return &Repository{db: db}
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS objects (
			id TEXT PRIMARY KEY,
			key TEXT NOT NULL UNIQUE,
			size INTEGER NOT NULL,
			content_type TEXT NOT NULL,
			etag TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_objects_key ON objects(key);`,
		`CREATE INDEX IF NOT EXISTS idx_objects_content_type ON objects(content_type);`,
		`CREATE INDEX IF NOT EXISTS idx_objects_size ON objects(size);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// likePrefix escapes LIKE metacharacters in s and appends the wildcard, so
// keys containing % or _ match literally.
func likePrefix(s string) string {
	return escapeLike(s) + "%"
}

func likeContains(s string) string {
	return "%" + escapeLike(s) + "%"
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

const recordColumns = "id, key, size, content_type, etag, created_at"

// timeLayout is RFC 3339 with a fixed-width fractional second so that
// lexicographic ordering of the stored strings matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func scanRecord(row interface{ Scan(...any) error }) (*objectstore.ObjectRecord, error) {
	var record objectstore.ObjectRecord
	var createdAt string
	if err := row.Scan(&record.ID, &record.Key, &record.Size, &record.ContentType, &record.ETag, &createdAt); err != nil {
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	record.CreatedAt = ts

	return &record, nil
}

func (r *Repository) Upsert(ctx context.Context, record *objectstore.ObjectRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO objects (id, key, size, content_type, etag, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			id = excluded.id,
			size = excluded.size,
			content_type = excluded.content_type,
			etag = excluded.etag,
			created_at = excluded.created_at`,
		record.ID, record.Key, record.Size, record.ContentType, record.ETag,
		record.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return &objectstore.CatalogError{Op: "upsert", Key: record.Key, Err: err}
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, key string) (*objectstore.ObjectRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM objects WHERE key = ?", key)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, objectstore.ErrObjectNotFound
		}
		return nil, &objectstore.CatalogError{Op: "get", Key: key, Err: err}
	}
	return record, nil
}

func (r *Repository) ListByPrefix(ctx context.Context, prefix string, limit int) ([]*objectstore.ObjectRecord, error) {
	if limit <= 0 {
		// SQLite treats a negative LIMIT as unbounded.
		limit = -1
	}

	var rows *sql.Rows
	var err error
	if prefix == "" {
		rows, err = r.db.QueryContext(ctx,
			"SELECT "+recordColumns+" FROM objects ORDER BY key LIMIT ?", limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			"SELECT "+recordColumns+` FROM objects WHERE key LIKE ? ESCAPE '\' ORDER BY key LIMIT ?`,
			likePrefix(prefix), limit)
	}
	if err != nil {
		return nil, &objectstore.CatalogError{Op: "list", Err: err}
	}
	defer rows.Close()

	records := make([]*objectstore.ObjectRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, &objectstore.CatalogError{Op: "list", Err: err}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &objectstore.CatalogError{Op: "list", Err: err}
	}
	return records, nil
}

func (r *Repository) Search(ctx context.Context, query objectstore.SearchQuery) ([]*objectstore.ObjectRecord, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = objectstore.DefaultSearchLimit
	}

	// Predicates are assembled from a fixed set of optional filters, each
	// contributing one parameterized clause in a fixed order.
	var conditions []string
	var args []any

	if query.KeyContains != "" {
		conditions = append(conditions, `key LIKE ? ESCAPE '\'`)
		args = append(args, likeContains(query.KeyContains))
	}
	if query.ContentType != "" {
		conditions = append(conditions, "content_type = ?")
		args = append(args, query.ContentType)
	}
	if query.MinSize != nil {
		conditions = append(conditions, "size >= ?")
		args = append(args, *query.MinSize)
	}
	if query.MaxSize != nil {
		conditions = append(conditions, "size <= ?")
		args = append(args, *query.MaxSize)
	}

	sqlQuery := "SELECT " + recordColumns + " FROM objects"
	if len(conditions) > 0 {
		sqlQuery += " WHERE " + strings.Join(conditions, " AND ")
	}
	sqlQuery += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, &objectstore.CatalogError{Op: "search", Err: err}
	}
	defer rows.Close()

	records := make([]*objectstore.ObjectRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, &objectstore.CatalogError{Op: "search", Err: err}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &objectstore.CatalogError{Op: "search", Err: err}
	}
	return records, nil
}

func (r *Repository) Delete(ctx context.Context, key string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM objects WHERE key = ?", key)
	if err != nil {
		return false, &objectstore.CatalogError{Op: "delete", Key: key, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, &objectstore.CatalogError{Op: "delete", Key: key, Err: err}
	}
	return affected > 0, nil
}

func (r *Repository) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM objects WHERE key LIKE ? ESCAPE '\'`, likePrefix(prefix))
	if err != nil {
		return 0, &objectstore.CatalogError{Op: "delete_by_prefix", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, &objectstore.CatalogError{Op: "delete_by_prefix", Err: err}
	}
	return affected, nil
}

func (r *Repository) Stats(ctx context.Context) (objectstore.StoreStats, error) {
	var stats objectstore.StoreStats
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(size), 0) FROM objects",
	).Scan(&stats.TotalObjects, &stats.TotalSize)
	if err != nil {
		return objectstore.StoreStats{}, &objectstore.CatalogError{Op: "stats", Err: err}
	}
	return stats, nil
}
