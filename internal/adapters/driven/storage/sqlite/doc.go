// Package sqlite provides the SQLite-backed implementation of the
// DocumentStore port.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation. A single database file
// holds four relations - documents, chunks, embeddings and relationships -
// plus the schema_migrations log and the documents_fts FTS5 index.
//
// # Schema
//
// The schema is managed through versioned, forward-only migrations embedded
// from the migrations/ directory. When a migration fails the store falls
// back to a minimal bootstrap schema (documents only, no lexical index) and
// reports StateDegraded through Health() instead of refusing to start.
//
// # Lexical index
//
// documents_fts is an external-content FTS5 table kept in sync by triggers
// on the documents table, so a document write and its index write always
// commit in the same transaction. Tombstoned documents are filtered out at
// query time; their index entries are purged lazily on the next update.
//
// # Concurrency
//
// The database runs in WAL mode: many concurrent readers, one writer.
// Mutating operations additionally serialise on an exclusive, timeout
// bounded lock inside the handle and surface contention as domain.ErrBusy
// rather than deadlocking. The lock lives in the handle, not a package
// global, so multiple stores can coexist in tests.
package sqlite
