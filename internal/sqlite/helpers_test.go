package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/alchemist/pkg/types"
)

// setupBackend creates an attached Backend in a temporary data directory.
// Detach is registered as test cleanup.
func setupBackend(t *testing.T, opts ...Option) *Backend {
	t.Helper()
	b := NewBackend(opts...)
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}
	require.NoError(t, b.Attach(config))
	t.Cleanup(func() { b.Detach() })
	return b
}

// fixedClock returns a clock that always reports ts.
func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func int64Ptr(v int64) *int64 { return &v }
