// Package objectstore provides a single-node object store library pairing a
// content-addressed blob store with a relational metadata catalog.
//
// It exposes a Service interface that coordinates streaming uploads (hash and
// size-cap enforcement computed inline with the write), catalog upserts,
// prefix-based hierarchical listing emulation, and bulk prefix deletion.
// Implementations of catalogs (memory, SQLite, Postgres) and blob stores
// (memory, filesystem, S3) are provided under subpackages.
//
// The catalog is the source of truth for which keys exist; the blob store is
// the source of truth for bytes. The service writes blobs before catalog rows
// on create and deletes blobs before catalog rows on remove, so a failed
// upload never leaves a visible catalog entry.
package objectstore
