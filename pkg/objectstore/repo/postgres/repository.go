package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-objectstore/pkg/objectstore"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements objectstore.Catalog using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL catalog
func New(db DBTX) objectstore.Catalog {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL catalog with a connection pool
func NewWithPool(pool *pgxpool.Pool) objectstore.Catalog {
	return &Repository{db: pool}
}

// InitSchema creates the objects table and its secondary indexes if they do
// not exist.
func InitSchema(ctx context.Context, db DBTX) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS objects (
			id TEXT PRIMARY KEY,
			key TEXT NOT NULL UNIQUE,
			size BIGINT NOT NULL,
			content_type TEXT NOT NULL,
			etag TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_objects_key ON objects(key)`,
		`CREATE INDEX IF NOT EXISTS idx_objects_content_type ON objects(content_type)`,
		`CREATE INDEX IF NOT EXISTS idx_objects_size ON objects(size)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return &objectstore.CatalogError{Op: "init_schema", Err: err}
		}
	}
	return nil
}

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

func (r *Repository) Upsert(ctx context.Context, record *objectstore.ObjectRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO objects (id, key, size, content_type, etag, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE SET
			id = excluded.id,
			size = excluded.size,
			content_type = excluded.content_type,
			etag = excluded.etag,
			created_at = excluded.created_at`,
		record.ID, record.Key, record.Size, record.ContentType, record.ETag,
		record.CreatedAt.UTC(),
	)
	if err != nil {
		return &objectstore.CatalogError{Op: "upsert", Key: record.Key, Err: err}
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, key string) (*objectstore.ObjectRecord, error) {
	var record objectstore.ObjectRecord
	var createdAt time.Time
	err := r.db.QueryRow(ctx,
		"SELECT "+recordColumns+" FROM objects WHERE key = $1", key,
	).Scan(&record.ID, &record.Key, &record.Size, &record.ContentType, &record.ETag, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, objectstore.ErrObjectNotFound
		}
		return nil, &objectstore.CatalogError{Op: "get", Key: key, Err: err}
	}
	record.CreatedAt = createdAt.UTC()
	return &record, nil
}

func (r *Repository) ListByPrefix(ctx context.Context, prefix string, limit int) ([]*objectstore.ObjectRecord, error) {
	var rows pgx.Rows
	var err error

	switch {
	case prefix == "" && limit <= 0:
		rows, err = r.db.Query(ctx,
			"SELECT "+recordColumns+" FROM objects ORDER BY key")
	case prefix == "":
		rows, err = r.db.Query(ctx,
			"SELECT "+recordColumns+" FROM objects ORDER BY key LIMIT $1", limit)
	case limit <= 0:
		rows, err = r.db.Query(ctx,
			"SELECT "+recordColumns+` FROM objects WHERE key LIKE $1 ORDER BY key`,
			likePrefix(prefix))
	default:
		rows, err = r.db.Query(ctx,
			"SELECT "+recordColumns+` FROM objects WHERE key LIKE $1 ORDER BY key LIMIT $2`,
			likePrefix(prefix), limit)
	}
	if err != nil {
		return nil, &objectstore.CatalogError{Op: "list", Err: err}
	}
	defer rows.Close()

	return collectRecords(rows, "list")
}

func (r *Repository) Search(ctx context.Context, query objectstore.SearchQuery) ([]*objectstore.ObjectRecord, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = objectstore.DefaultSearchLimit
	}

	var conditions []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if query.KeyContains != "" {
		conditions = append(conditions, "key LIKE "+arg(likeContains(query.KeyContains)))
	}
	if query.ContentType != "" {
		conditions = append(conditions, "content_type = "+arg(query.ContentType))
	}
	if query.MinSize != nil {
		conditions = append(conditions, "size >= "+arg(*query.MinSize))
	}
	if query.MaxSize != nil {
		conditions = append(conditions, "size <= "+arg(*query.MaxSize))
	}

	sqlQuery := "SELECT " + recordColumns + " FROM objects"
	if len(conditions) > 0 {
		sqlQuery += " WHERE " + strings.Join(conditions, " AND ")
	}
	sqlQuery += " ORDER BY created_at DESC LIMIT " + arg(limit)

	rows, err := r.db.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, &objectstore.CatalogError{Op: "search", Err: err}
	}
	defer rows.Close()

	return collectRecords(rows, "search")
}

func (r *Repository) Delete(ctx context.Context, key string) (bool, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM objects WHERE key = $1", key)
	if err != nil {
		return false, &objectstore.CatalogError{Op: "delete", Key: key, Err: err}
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		"DELETE FROM objects WHERE key LIKE $1", likePrefix(prefix))
	if err != nil {
		return 0, &objectstore.CatalogError{Op: "delete_by_prefix", Err: err}
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) Stats(ctx context.Context) (objectstore.StoreStats, error) {
	var stats objectstore.StoreStats
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*), COALESCE(SUM(size), 0) FROM objects",
	).Scan(&stats.TotalObjects, &stats.TotalSize)
	if err != nil {
		return objectstore.StoreStats{}, &objectstore.CatalogError{Op: "stats", Err: err}
	}
	return stats, nil
}

func collectRecords(rows pgx.Rows, op string) ([]*objectstore.ObjectRecord, error) {
	records := make([]*objectstore.ObjectRecord, 0)
	for rows.Next() {
		var record objectstore.ObjectRecord
		var createdAt time.Time
		if err := rows.Scan(&record.ID, &record.Key, &record.Size, &record.ContentType, &record.ETag, &createdAt); err != nil {
			return nil, &objectstore.CatalogError{Op: op, Err: err}
		}
		record.CreatedAt = createdAt.UTC()
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, &objectstore.CatalogError{Op: op, Err: err}
	}
	return records, nil
}

