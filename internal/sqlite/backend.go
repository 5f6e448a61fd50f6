// Package sqlite implements the SQLite storage backend for the Alchemist
// library: a versioned store holding the books and codex_entries
// collections, and typed repositories over them.
//
// See docs/ARCHITECTURE.md § SQLite Backend.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/alchemist/pkg/types"
)

// Backend implements the Library interface on a single SQLite file. The
// Backend is the store handle: it is constructed explicitly by the
// application root and shared by both repositories.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	path     string
	books    *table[types.Book]
	codex    *codexTable
	logger   *slog.Logger
	now      func() time.Time

	// Migration bookkeeping from the last Attach.
	oldVersion int
	applied    int
}

var _ types.Library = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for storage errors and migrations.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// WithClock replaces time.Now for timestamp stamping.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.books = newBookTable(b)
	b.codex = newCodexTable(b)
	return b
}

// Attach opens <DataDir>/<DBName>.db, applies pragmas and runs every
// migration step newer than the stored schema version.
// Returns ErrAlreadyAttached if already attached and an error wrapping
// ErrStorageUnavailable if the engine cannot be opened.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("%w: create data dir: %v", types.ErrStorageUnavailable, err)
	}

	path := filepath.Join(dataDir, config.GetDBName()+".db")
	db, err := openDB(path)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}

	oldVersion, applied, err := runMigrations(context.Background(), db, schemaMigrations)
	if err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}
	if applied > 0 {
		b.logger.Info("store upgraded",
			"path", path,
			"from_version", oldVersion,
			"to_version", SchemaVersion,
			"steps", applied)
	}

	b.db = db
	b.path = path
	b.config = config
	b.oldVersion = oldVersion
	b.applied = applied
	b.attached = true
	return nil
}

// Detach releases all resources held by the backend.
// After Detach, all repository operations return ErrDetached.
// Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	b.attached = false
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		if err != nil {
			return err
		}
	}
	return nil
}

// Books returns the book repository.
func (b *Backend) Books() types.Repository[types.Book] {
	return b.books
}

// Codex returns the codex entry repository.
func (b *Backend) Codex() types.CodexRepository {
	return b.codex
}

// Path returns the database file path of the attached store.
func (b *Backend) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// MigrationState reports the schema version found on disk at the last
// Attach and the number of migration steps that Attach applied.
func (b *Backend) MigrationState() (oldVersion, applied int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.oldVersion, b.applied
}

// stamp returns the current time without a monotonic reading, in UTC, so
// that stored and returned timestamps compare equal.
func (b *Backend) stamp() time.Time {
	return b.now().UTC().Round(0)
}

// openDB opens the SQLite file, verifies the connection and applies the
// required pragmas.
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	return db, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}
