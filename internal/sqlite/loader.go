// This file implements library export to and import from JSONL files.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/mesh-intelligence/alchemist/pkg/types"
)

// Export file names per collection.
const (
	booksFile = "books.jsonl"
	codexFile = "codex_entries.jsonl"
)

// ExportOptions configures Export.
type ExportOptions struct {
	// Compress writes zstd-compressed files with a .zst suffix.
	Compress bool
}

// ImportResult counts the records loaded and skipped by Import.
type ImportResult struct {
	Books   int `json:"books"`
	Codex   int `json:"codex"`
	Skipped int `json:"skipped"`
}

func exportPath(dir, name string, compress bool) string {
	p := filepath.Join(dir, name)
	if compress {
		p += zstdExt
	}
	return p
}

// Export writes every book and codex entry to JSONL files in dir. Each file
// is replaced atomically.
func (b *Backend) Export(ctx context.Context, dir string, opts ExportOptions) error {
	books, err := b.books.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("export books: %w", err)
	}
	entries, err := b.codex.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("export codex: %w", err)
	}

	bookRecs, err := marshalRecords(books)
	if err != nil {
		return fmt.Errorf("encode books: %w", err)
	}
	codexRecs, err := marshalRecords(entries)
	if err != nil {
		return fmt.Errorf("encode codex: %w", err)
	}

	if err := writeJSONL(exportPath(dir, booksFile, opts.Compress), bookRecs); err != nil {
		return fmt.Errorf("write %s: %w", booksFile, err)
	}
	if err := writeJSONL(exportPath(dir, codexFile, opts.Compress), codexRecs); err != nil {
		return fmt.Errorf("write %s: %w", codexFile, err)
	}
	b.logger.Info("library exported", "dir", dir, "books", len(books), "codex", len(entries))
	return nil
}

// Import loads the JSONL files in dir (compressed or plain) into the store,
// keeping the exported keys. Loading is transactional: either every
// accepted record is committed or none is. Malformed lines, invalid
// entities and records whose key already exists are skipped.
func (b *Backend) Import(ctx context.Context, dir string) (ImportResult, error) {
	var res ImportResult

	bookRecs, err := readFirst(dir, booksFile)
	if err != nil {
		return res, err
	}
	codexRecs, err := readFirst(dir, codexFile)
	if err != nil {
		return res, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return res, types.ErrDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	now := b.stamp()
	for _, rec := range bookRecs {
		var bk types.Book
		if err := json.Unmarshal(rec, &bk); err != nil || bk.Validate() != nil || bk.ID <= 0 {
			res.Skipped++
			continue
		}
		if bk.CreatedAt.IsZero() {
			bk.CreatedAt = now
		}
		if bk.UpdatedAt.IsZero() {
			bk.UpdatedAt = bk.CreatedAt
		}
		ok, err := insertWithID(ctx, tx, b.books.schema, bk)
		if err != nil {
			return ImportResult{}, err
		}
		if ok {
			res.Books++
		} else {
			res.Skipped++
		}
	}

	for _, rec := range codexRecs {
		var e types.CodexEntry
		if err := json.Unmarshal(rec, &e); err != nil || e.Validate() != nil || e.ID <= 0 {
			res.Skipped++
			continue
		}
		ok, err := insertWithID(ctx, tx, b.codex.schema, e)
		if err != nil {
			return ImportResult{}, err
		}
		if ok {
			res.Codex++
		} else {
			res.Skipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return ImportResult{}, fmt.Errorf("committing import transaction: %w", err)
	}
	b.logger.Info("library imported", "dir", dir, "books", res.Books, "codex", res.Codex, "skipped", res.Skipped)
	return res, nil
}

// readFirst reads the compressed file if present, else the plain one.
func readFirst(dir, name string) ([]json.RawMessage, error) {
	recs, err := readJSONL(exportPath(dir, name, true))
	if err != nil || recs != nil {
		return recs, err
	}
	return readJSONL(exportPath(dir, name, false))
}

// insertWithID inserts e under its own key. It reports false, without
// error, when the key is already taken.
func insertWithID[T record](ctx context.Context, tx *sql.Tx, s entitySchema[T], e T) (bool, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(s.columns)+1), ", ")
	res, err := tx.ExecContext(ctx,
		fmt.Sprintf("INSERT OR IGNORE INTO %s (id, %s) VALUES (%s)",
			s.table, strings.Join(s.columns, ", "), placeholders),
		append([]any{e.Key()}, s.values(e)...)...)
	if err != nil {
		return false, fmt.Errorf("importing into %s: %w", s.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("importing into %s: %w", s.table, err)
	}
	return n == 1, nil
}
