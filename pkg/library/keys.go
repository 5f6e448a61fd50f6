package library

import (
	"github.com/mesh-intelligence/alchemist/pkg/query"
	"github.com/mesh-intelligence/alchemist/pkg/types"
)

// Cache key roots.
const (
	booksRoot = "books"
	codexRoot = "codex"
)

// BooksKey is the cache key of the book collection query.
func BooksKey() query.Key { return query.KeyOf(booksRoot) }

// BookKey is the cache key of one book.
func BookKey(id int64) query.Key { return query.KeyOf(booksRoot, id) }

// CodexKey is the cache key of the codex collection query.
func CodexKey() query.Key { return query.KeyOf(codexRoot) }

// CodexEntryKey is the cache key of one codex entry.
func CodexEntryKey(id int64) query.Key { return query.KeyOf(codexRoot, id) }

// CodexBookKey is the cache key of the entries of one book; nil selects the
// global entries.
func CodexBookKey(bookID *int64) query.Key {
	if bookID == nil {
		return query.KeyOf(codexRoot, "book", "global")
	}
	return query.KeyOf(codexRoot, "book", *bookID)
}

// CodexCategoryKey is the cache key of the entries in one category.
func CodexCategoryKey(category string) query.Key {
	return query.KeyOf(codexRoot, "category", category)
}

// codexKeys lists every key an entry contributes to.
func codexKeys(e types.CodexEntry) []query.Key {
	return []query.Key{CodexEntryKey(e.ID), CodexBookKey(e.BookID), CodexCategoryKey(e.Category)}
}
