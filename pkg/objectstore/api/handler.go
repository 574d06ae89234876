package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-objectstore/pkg/objectstore"
)

// Handler handles HTTP requests for the object store API
type Handler struct {
	service     objectstore.Service
	storagePath string
}

// NewHandler creates a new object store handler. storagePath is reported by
// the stats endpoint.
func NewHandler(service objectstore.Service, storagePath string) *Handler {
	return &Handler{
		service:     service,
		storagePath: storagePath,
	}
}

// Routes returns the API routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/objects", h.ListObjects)
	r.Put("/objects/*", h.PutObject)
	r.Get("/objects/*", h.GetObject)
	r.Delete("/objects/*", h.DeleteObject)

	r.Get("/metadata/*", h.GetObjectMetadata)
	r.Get("/info/*", h.GetObjectInfo)
	r.Delete("/folders/*", h.DeleteFolder)

	r.Get("/search", h.SearchObjects)
	r.Get("/stats", h.GetStats)

	return r
}

// StatsResponse is the response body for store statistics
type StatsResponse struct {
	TotalObjects int64  `json:"total_objects"`
	TotalSize    int64  `json:"total_size"`
	StoragePath  string `json:"storage_path"`
}

// DeleteResponse is the response body for delete operations
type DeleteResponse struct {
	Success bool   `json:"success"`
	Deleted *int64 `json:"deleted,omitempty"`
}

// ErrorResponse is the response body for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
}

// objectKey extracts the wildcard path segment as the object key. Keys are
// treated as opaque strings; no normalization beyond URL decoding.
func objectKey(r *http.Request) string {
	key := chi.URLParam(r, "*")
	if decoded, err := url.PathUnescape(key); err == nil {
		key = decoded
	}
	return key
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, key string, err error) {
	var tooLarge *objectstore.PayloadTooLargeError

	switch {
	case errors.Is(err, objectstore.ErrObjectNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Error: fmt.Sprintf("Object not found: %s", key)})
	case errors.As(err, &tooLarge):
		render.Status(r, http.StatusRequestEntityTooLarge)
		render.JSON(w, r, ErrorResponse{Error: tooLarge.Error()})
	default:
		// Storage failures stay generic on the wire; details go to the log.
		slog.Error("storage failure", "key", key, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "internal storage error"})
	}
}

// PutObject streams the request body into the store
func (h *Handler) PutObject(w http.ResponseWriter, r *http.Request) {
	key := objectKey(r)
	slog.Info("put object", "key", key)

	contentType := r.Header.Get("Content-Type")

	record, err := h.service.PutObject(r.Context(), objectstore.PutObjectRequest{
		Key:         key,
		ContentType: contentType,
		Body:        r.Body,
	})
	if err != nil {
		h.renderError(w, r, key, err)
		return
	}

	slog.Debug("object stored", "key", key, "etag", record.ETag, "size", record.Size)
	render.JSON(w, r, record)
}

// GetObject streams the object bytes back to the client
func (h *Handler) GetObject(w http.ResponseWriter, r *http.Request) {
	key := objectKey(r)
	slog.Info("get object", "key", key)

	record, reader, err := h.service.GetObject(r.Context(), key)
	if err != nil {
		h.renderError(w, r, key, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", record.ContentType)
	w.Header().Set("ETag", record.ETag)
	w.Header().Set("Content-Length", strconv.FormatInt(record.Size, 10))

	if _, err := io.Copy(w, reader); err != nil {
		// Headers are already written; the client likely went away.
		slog.Debug("object stream interrupted", "key", key, "error", err)
	}
}

// GetObjectMetadata returns the catalog record only
func (h *Handler) GetObjectMetadata(w http.ResponseWriter, r *http.Request) {
	key := objectKey(r)
	slog.Info("head object", "key", key)

	record, err := h.service.GetObjectRecord(r.Context(), key)
	if err != nil {
		h.renderError(w, r, key, err)
		return
	}

	render.JSON(w, r, record)
}

// GetObjectInfo returns the catalog record plus the blob location
func (h *Handler) GetObjectInfo(w http.ResponseWriter, r *http.Request) {
	key := objectKey(r)
	slog.Info("object info", "key", key)

	info, err := h.service.GetObjectInfo(r.Context(), key)
	if err != nil {
		h.renderError(w, r, key, err)
		return
	}

	render.JSON(w, r, info)
}

// DeleteObject removes a single object
func (h *Handler) DeleteObject(w http.ResponseWriter, r *http.Request) {
	key := objectKey(r)
	slog.Info("delete object", "key", key)

	if err := h.service.DeleteObject(r.Context(), key); err != nil {
		h.renderError(w, r, key, err)
		return
	}

	render.JSON(w, r, DeleteResponse{Success: true})
}

// DeleteFolder removes every object under a prefix
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	prefix := objectKey(r)
	slog.Info("delete folder", "prefix", prefix)

	deleted, err := h.service.DeleteFolder(r.Context(), prefix)
	if err != nil {
		h.renderError(w, r, prefix, err)
		return
	}

	slog.Info("folder deleted", "prefix", prefix, "deleted", deleted)
	render.JSON(w, r, DeleteResponse{Success: true, Deleted: &deleted})
}

// ListObjects lists objects under a prefix with folder emulation
func (h *Handler) ListObjects(w http.ResponseWriter, r *http.Request) {
	req := objectstore.ListObjectsRequest{
		Prefix:    r.URL.Query().Get("prefix"),
		Delimiter: r.URL.Query().Get("delimiter"),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: "invalid limit"})
			return
		}
		req.Limit = n
	}

	slog.Info("list objects", "prefix", req.Prefix)

	result, err := h.service.ListObjects(r.Context(), req)
	if err != nil {
		h.renderError(w, r, req.Prefix, err)
		return
	}

	slog.Debug("list complete", "objects", result.Total, "prefixes", len(result.Prefixes))
	render.JSON(w, r, result)
}

// SearchObjects runs the catalog's conjunctive filter query
func (h *Handler) SearchObjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := objectstore.SearchObjectsRequest{
		KeyContains: q.Get("key"),
		ContentType: q.Get("content_type"),
	}

	var parseErr error
	parseSize := func(name string) *int64 {
		raw := q.Get(name)
		if raw == "" {
			return nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			parseErr = fmt.Errorf("invalid %s", name)
			return nil
		}
		return &n
	}
	req.MinSize = parseSize("min_size")
	req.MaxSize = parseSize("max_size")
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			parseErr = fmt.Errorf("invalid limit")
		}
		req.Limit = n
	}
	if parseErr != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: parseErr.Error()})
		return
	}

	slog.Info("search objects",
		"key", req.KeyContains,
		"content_type", req.ContentType)

	result, err := h.service.SearchObjects(r.Context(), req)
	if err != nil {
		h.renderError(w, r, req.KeyContains, err)
		return
	}

	render.JSON(w, r, result)
}

// GetStats returns catalog aggregates
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.renderError(w, r, "", err)
		return
	}

	render.JSON(w, r, StatsResponse{
		TotalObjects: stats.TotalObjects,
		TotalSize:    stats.TotalSize,
		StoragePath:  h.storagePath,
	})
}
