package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the store version this package upgrades to.
//
// 1 - books collection, index on title
// 2 - codex_entries collection, indexes on book_id and category
const SchemaVersion = 2

// Migration is one schema upgrade step. It runs only when the stored
// version is older than Version, and must create structures with
// IF NOT EXISTS so that it never touches existing data.
type Migration struct {
	Version int
	Name    string
	Stmts   []string
}

// Collection DDL.
const (
	createBooks = `CREATE TABLE IF NOT EXISTS books (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    author TEXT NOT NULL DEFAULT '',
    cover_url TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createCodexEntries = `CREATE TABLE IF NOT EXISTS codex_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    book_id INTEGER,
    category TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL
);`
)

// Index DDL.
const (
	idxBooksTitle    = `CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);`
	idxCodexBook     = `CREATE INDEX IF NOT EXISTS idx_codex_entries_book ON codex_entries(book_id);`
	idxCodexCategory = `CREATE INDEX IF NOT EXISTS idx_codex_entries_category ON codex_entries(category);`
)

// schemaMigrations lists the upgrade steps in version order.
var schemaMigrations = []Migration{
	{Version: 1, Name: "books", Stmts: []string{createBooks, idxBooksTitle}},
	{Version: 2, Name: "codex_entries", Stmts: []string{createCodexEntries, idxCodexBook, idxCodexCategory}},
}

// runMigrations reads the stored version (PRAGMA user_version) and applies
// each step whose Version is greater, one transaction per step. It returns
// the version found on disk and the number of steps applied. Re-running at
// an unchanged version applies nothing.
func runMigrations(ctx context.Context, db *sql.DB, steps []Migration) (oldVersion, applied int, err error) {
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&oldVersion); err != nil {
		return 0, 0, fmt.Errorf("get user_version: %w", err)
	}

	latest := 0
	if len(steps) > 0 {
		latest = steps[len(steps)-1].Version
	}
	if oldVersion > latest {
		return oldVersion, 0, fmt.Errorf("store version %d is newer than supported version %d", oldVersion, latest)
	}

	for _, step := range steps {
		if step.Version <= oldVersion {
			continue
		}
		if err := applyMigration(ctx, db, step); err != nil {
			return oldVersion, applied, err
		}
		applied++
	}
	return oldVersion, applied, nil
}

// applyMigration runs one step and records its version atomically.
func applyMigration(ctx context.Context, db *sql.DB, step Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate to v%d: begin: %w", step.Version, err)
	}
	defer tx.Rollback()

	for _, stmt := range step.Stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate to v%d (%s): %w", step.Version, step.Name, err)
		}
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", step.Version)); err != nil {
		return fmt.Errorf("migrate to v%d: set user_version: %w", step.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate to v%d: commit: %w", step.Version, err)
	}
	return nil
}
