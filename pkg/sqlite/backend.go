// Package sqlite provides the public API for the SQLite library backend.
// It exposes the factory for creating backends while keeping the storage
// implementation internal.
package sqlite

import (
	"log/slog"

	"github.com/mesh-intelligence/alchemist/internal/sqlite"
	"github.com/mesh-intelligence/alchemist/pkg/types"
)

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	library := sqlite.NewBackend(logger)
//	err := library.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".alchemist-db",
//	})
//	defer library.Detach()
func NewBackend(logger *slog.Logger) types.Library {
	if logger == nil {
		return sqlite.NewBackend()
	}
	return sqlite.NewBackend(sqlite.WithLogger(logger))
}
