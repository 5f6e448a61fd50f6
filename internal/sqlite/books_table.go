package sqlite

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/alchemist/pkg/types"
)

// bookColumns lists the non-key books columns in values order.
var bookColumns = []string{"title", "author", "cover_url", "content", "created_at", "updated_at"}

func newBookTable(b *Backend) *table[types.Book] {
	return &table[types.Book]{
		backend: b,
		schema: entitySchema[types.Book]{
			table:   "books",
			columns: bookColumns,
			values: func(bk types.Book) []any {
				return []any{bk.Title, bk.Author, bk.CoverURL, bk.Content,
					formatTime(bk.CreatedAt), formatTime(bk.UpdatedAt)}
			},
			scan: scanBook,
			withID: func(bk types.Book, id int64) types.Book {
				bk.ID = id
				return bk
			},
			stamp: func(bk types.Book, created, updated time.Time) types.Book {
				bk.CreatedAt = created
				bk.UpdatedAt = updated
				return bk
			},
			times: func(bk types.Book) (time.Time, time.Time) {
				return bk.CreatedAt, bk.UpdatedAt
			},
		},
	}
}

func scanBook(row rowScanner) (types.Book, error) {
	var bk types.Book
	var createdAt, updatedAt string
	if err := row.Scan(&bk.ID, &bk.Title, &bk.Author, &bk.CoverURL, &bk.Content, &createdAt, &updatedAt); err != nil {
		return types.Book{}, err
	}
	var err error
	if bk.CreatedAt, err = parseTime(createdAt); err != nil {
		return types.Book{}, fmt.Errorf("parsing book created_at: %w", err)
	}
	if bk.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return types.Book{}, fmt.Errorf("parsing book updated_at: %w", err)
	}
	return bk, nil
}
