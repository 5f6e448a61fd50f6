package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/alchemist/internal/sqlite"
	"github.com/mesh-intelligence/alchemist/pkg/autosave"
	"github.com/mesh-intelligence/alchemist/pkg/library"
	"github.com/mesh-intelligence/alchemist/pkg/query"
	"github.com/mesh-intelligence/alchemist/pkg/types"
)

const sqliteSchemaVersion = sqlite.SchemaVersion

// attachBackend resolves the data directory, creates a SQLite backend, and
// attaches it. The caller must defer backend.Detach().
func (a *app) attachBackend() (*sqlite.Backend, error) {
	cfg, err := a.storeConfig()
	if err != nil {
		return nil, sysError("resolve data dir: %w", err)
	}
	backend := sqlite.NewBackend(sqlite.WithLogger(a.logger))
	if err := backend.Attach(cfg); err != nil {
		if errors.Is(err, types.ErrBackendEmpty) || errors.Is(err, types.ErrBackendUnknown) || errors.Is(err, types.ErrDBNameInvalid) {
			return nil, userError("invalid config: %w", err)
		}
		return nil, sysError("attach backend: %w", err)
	}
	return backend, nil
}

// openLibrary attaches a backend and wraps it in a cached, autosaving
// Library configured from config.yaml. The caller must defer Detach.
func (a *app) openLibrary() (*library.Library, error) {
	stale, err := a.duration(cfgKeyStaleTime)
	if err != nil {
		return nil, userError("invalid config: %w", err)
	}
	content, err := a.duration(cfgKeyContentDebounce)
	if err != nil {
		return nil, userError("invalid config: %w", err)
	}
	metadata, err := a.duration(cfgKeyMetadataDebounce)
	if err != nil {
		return nil, userError("invalid config: %w", err)
	}

	backend, err := a.attachBackend()
	if err != nil {
		return nil, err
	}
	cache := query.NewClient(query.WithStaleTime(stale), query.WithLogger(a.logger))
	lib := library.New(backend,
		library.WithCache(cache),
		library.WithLogger(a.logger),
		library.WithAutosave(
			autosave.WithWindow(autosave.ClassContent, content),
			autosave.WithWindow(autosave.ClassMetadata, metadata),
		),
	)
	collectors := append(cache.Metrics().Collectors(), lib.Autosave().Metrics().Collectors()...)
	if err := a.registerMetrics(collectors...); err != nil {
		lib.Detach()
		return nil, err
	}
	return lib, nil
}

// storageError classifies a repository error for the exit code.
func storageError(op string, err error) error {
	switch {
	case errors.Is(err, types.ErrValidation), errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrInvalidID):
		return userError("%s: %w", op, err)
	default:
		return sysError("%s: %w", op, err)
	}
}

// parseID parses a positional entity key.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, userError("invalid id %q", s)
	}
	return id, nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError("marshal output: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// output prints v as JSON in --json mode and calls text otherwise.
func (a *app) output(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	if a.jsonMode {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	text(cmd.OutOrStdout())
	return nil
}
