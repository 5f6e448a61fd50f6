package sqlite

import (
	"context"
	"database/sql"

	"github.com/mesh-intelligence/alchemist/pkg/types"
)

// codexColumns lists the non-key codex_entries columns in values order.
var codexColumns = []string{"book_id", "category", "name", "description"}

// codexTable adds the by-book and by-category index lookups.
type codexTable struct {
	*table[types.CodexEntry]
}

func newCodexTable(b *Backend) *codexTable {
	return &codexTable{&table[types.CodexEntry]{
		backend: b,
		schema: entitySchema[types.CodexEntry]{
			table:   "codex_entries",
			columns: codexColumns,
			values: func(e types.CodexEntry) []any {
				var bookID sql.NullInt64
				if e.BookID != nil {
					bookID = sql.NullInt64{Int64: *e.BookID, Valid: true}
				}
				return []any{bookID, e.Category, e.Name, e.Description}
			},
			scan: scanCodexEntry,
			withID: func(e types.CodexEntry, id int64) types.CodexEntry {
				e.ID = id
				return e
			},
		},
	}}
}

func scanCodexEntry(row rowScanner) (types.CodexEntry, error) {
	var e types.CodexEntry
	var bookID sql.NullInt64
	if err := row.Scan(&e.ID, &bookID, &e.Category, &e.Name, &e.Description); err != nil {
		return types.CodexEntry{}, err
	}
	if bookID.Valid {
		id := bookID.Int64
		e.BookID = &id
	}
	return e, nil
}

// ByBook returns the entries of one book, or the global entries when
// bookID is nil.
func (t *codexTable) ByBook(ctx context.Context, bookID *int64) ([]types.CodexEntry, error) {
	if bookID == nil {
		return t.query(ctx, "book_id IS NULL", nil)
	}
	return t.query(ctx, "book_id = ?", []any{*bookID})
}

// ByCategory returns the entries in category.
func (t *codexTable) ByCategory(ctx context.Context, category string) ([]types.CodexEntry, error) {
	return t.query(ctx, "category = ?", []any{category})
}
