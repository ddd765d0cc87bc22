package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tessera-labs/corpus-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/tessera-labs/corpus-cli/internal/core/domain"
	"github.com/tessera-labs/corpus-cli/internal/core/ports/driven"
	"github.com/tessera-labs/corpus-cli/internal/logger"
)

// DefaultLockTimeout bounds how long a mutating operation waits for the
// exclusive write lock before failing with domain.ErrBusy.
const DefaultLockTimeout = 30 * time.Second

// bootstrapSchema is the minimal fallback applied when migrations fail:
// documents only, no lexical index. The store would rather serve documents
// without search than refuse to start.
const bootstrapSchema = `
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    source_system TEXT NOT NULL,
    source_id TEXT NOT NULL,
    type TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    origin_path TEXT NOT NULL DEFAULT '',
    content_hash TEXT NOT NULL DEFAULT '',
    extra TEXT NOT NULL DEFAULT '{}',
    deleted INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    last_seen_at DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_identity
    ON documents(source_system, source_id) WHERE deleted = 0;
`

var _ driven.DocumentStore = (*Store)(nil)

// Store is the SQLite-backed document store. One handle owns one database
// file, its write lock and its health state; multiple stores can coexist.
type Store struct {
	db          *sql.DB
	path        string
	lockTimeout time.Duration

	// writeLock serialises mutating operations. Buffered size 1: holding
	// the token is holding the lock.
	writeLock chan struct{}

	healthMu sync.RWMutex
	health   domain.Health
}

// Option configures the store.
type Option func(*Store)

// WithLockTimeout overrides the exclusive write lock timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// NewStore creates a SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.corpus/data/corpus.db.
func NewStore(dataDir string, opts ...Option) (*Store, error) {
	return newStoreWithMigrations(dataDir, migrations.FS, opts...)
}

// newStoreWithMigrations is split out so tests can inject a broken
// migration set and exercise the degraded-mode fallback.
func newStoreWithMigrations(dataDir string, fsys fs.FS, opts ...Option) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".corpus", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "corpus.db")

	// WAL mode: many concurrent readers, one writer with snapshot reads.
	// Pragmas go through the DSN so every pooled connection gets them;
	// foreign_keys in particular must hold on the connection that deletes
	// chunks for the embeddings cascade to fire.
	db, err := sql.Open("sqlite",
		dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:          db,
		path:        dbPath,
		lockTimeout: DefaultLockTimeout,
		writeLock:   make(chan struct{}, 1),
		health:      domain.Health{State: domain.StateHealthy},
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(fsys); err != nil {
		// Availability trade-off: fall back to the bootstrap schema and
		// surface the failure through Health() instead of crashing.
		logger.Error("schema migration failed, falling back to bootstrap schema: %v", err)
		if _, bootErr := db.Exec(bootstrapSchema); bootErr != nil {
			db.Close()
			return nil, fmt.Errorf("applying bootstrap schema after migration failure: %w", bootErr)
		}
		s.setHealth(domain.Health{
			State:  domain.StateDegraded,
			Reason: err.Error(),
		})
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Health reports the store's schema health.
func (s *Store) Health() domain.Health {
	s.healthMu.RLock()
	defer s.healthMu.RUnlock()
	return s.health
}

func (s *Store) setHealth(h domain.Health) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	h.SchemaVersion = s.health.SchemaVersion
	s.health = h
}

func (s *Store) setSchemaVersion(v int) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	s.health.SchemaVersion = v
}

// acquireWrite takes the exclusive write lock, waiting at most the
// configured timeout. The returned release function must be called once.
func (s *Store) acquireWrite(ctx context.Context) (func(), error) {
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case s.writeLock <- struct{}{}:
		return func() { <-s.writeLock }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, domain.ErrBusy
	}
}

// migrate applies every pending migration in version order. Each migration
// runs in its own transaction together with its schema_migrations row.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	applied := currentVersion
	for _, name := range upFiles {
		// Extract version number (e.g. "001_initial.up.sql" -> 1).
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			applied = max(applied, version)
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("recording migration %s: %w", name, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
		applied = version
	}

	s.setSchemaVersion(applied)
	return nil
}
