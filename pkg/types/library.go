package types

import (
	"context"
	"errors"
	"fmt"
)

// Library defines backend-agnostic access to the book and codex collections.
// Callers attach to a backend, use the repositories, and detach when done.
type Library interface {
	// Attach opens the store described by config and brings its schema up
	// to date. Returns ErrAlreadyAttached if called while attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, repository calls return ErrDetached.
	Detach() error

	// Books returns the book repository.
	Books() Repository[Book]

	// Codex returns the codex entry repository.
	Codex() CodexRepository
}

// CodexRepository adds the secondary index lookups of the codex collection.
type CodexRepository interface {
	Repository[CodexEntry]

	// ByBook returns entries scoped to bookID; a nil bookID selects the
	// global entries.
	ByBook(ctx context.Context, bookID *int64) ([]CodexEntry, error)

	// ByCategory returns entries in the given category.
	ByCategory(ctx context.Context, category string) ([]CodexEntry, error)
}

// ErrStorageUnavailable reports that the underlying engine could not be
// opened or is not open.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Library lifecycle errors.
var (
	ErrDetached        = fmt.Errorf("%w: library is detached", ErrStorageUnavailable)
	ErrAlreadyAttached = errors.New("library is already attached")
)
