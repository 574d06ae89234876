package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/tendant/simple-objectstore/pkg/objectstore"
)

// Repository implements objectstore.Catalog using in-memory storage. It is
// intended as a test double and for ephemeral deployments.
type Repository struct {
	mu      sync.RWMutex
	records map[string]*objectstore.ObjectRecord // key -> record
}

// New creates a new in-memory catalog
func New() objectstore.Catalog {
	return &Repository{records: make(map[string]*objectstore.ObjectRecord)}
}

func (r *Repository) Upsert(ctx context.Context, record *objectstore.ObjectRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Copy to avoid external modifications
	recordCopy := *record
	r.records[record.Key] = &recordCopy

	return nil
}

func (r *Repository) Get(ctx context.Context, key string) (*objectstore.ObjectRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.records[key]
	if !exists {
		return nil, objectstore.ErrObjectNotFound
	}

	recordCopy := *record
	return &recordCopy, nil
}

func (r *Repository) ListByPrefix(ctx context.Context, prefix string, limit int) ([]*objectstore.ObjectRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.records))
	for key := range r.records {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	records := make([]*objectstore.ObjectRecord, 0, len(keys))
	for _, key := range keys {
		recordCopy := *r.records[key]
		records = append(records, &recordCopy)
	}
	return records, nil
}

func (r *Repository) Search(ctx context.Context, query objectstore.SearchQuery) ([]*objectstore.ObjectRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := query.Limit
	if limit <= 0 {
		limit = objectstore.DefaultSearchLimit
	}

	matches := make([]*objectstore.ObjectRecord, 0)
	for _, record := range r.records {
		if query.KeyContains != "" && !strings.Contains(record.Key, query.KeyContains) {
			continue
		}
		if query.ContentType != "" && record.ContentType != query.ContentType {
			continue
		}
		if query.MinSize != nil && record.Size < *query.MinSize {
			continue
		}
		if query.MaxSize != nil && record.Size > *query.MaxSize {
			continue
		}
		recordCopy := *record
		matches = append(matches, &recordCopy)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (r *Repository) Delete(ctx context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[key]; !exists {
		return false, nil
	}
	delete(r.records, key)
	return true, nil
}

func (r *Repository) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for key := range r.records {
		if strings.HasPrefix(key, prefix) {
			delete(r.records, key)
			deleted++
		}
	}
	return deleted, nil
}

func (r *Repository) Stats(ctx context.Context) (objectstore.StoreStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := objectstore.StoreStats{}
	for _, record := range r.records {
		stats.TotalObjects++
		stats.TotalSize += record.Size
	}
	return stats, nil
}
