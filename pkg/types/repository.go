package types

import (
	"context"
	"errors"
	"fmt"
)

// Entity is a persisted record identified by a numeric key. The key is zero
// until the store assigns one on creation.
type Entity interface {
	Key() int64
}

// Repository provides typed CRUD operations over one entity collection.
type Repository[T Entity] interface {
	// GetAll returns every entity in key order.
	GetAll(ctx context.Context) ([]T, error)

	// GetByID returns the entity stored under id. An absent key is reported
	// with found == false and a nil error.
	GetByID(ctx context.Context, id int64) (entity T, found bool, err error)

	// Create validates e, assigns a fresh key, stamps its timestamps and
	// persists it. Any key already set on e is ignored.
	Create(ctx context.Context, e T) (T, error)

	// Update replaces the stored record with the same key.
	// Returns ErrInvalidID for a zero key and ErrNotFound if no record
	// exists under the key; it never creates a record.
	Update(ctx context.Context, e T) (T, error)

	// Delete removes the record. Deleting an absent key is not an error.
	Delete(ctx context.Context, id int64) error
}

// Repository operation errors.
var (
	ErrNotFound   = errors.New("entity not found")
	ErrInvalidID  = errors.New("invalid entity ID")
	ErrValidation = errors.New("validation failed")
)

// ValidationError reports a required field that is missing or malformed
// before a write. It matches ErrValidation under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap returns ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
