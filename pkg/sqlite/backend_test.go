package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/alchemist/pkg/types"
)

func TestNewBackend_Library(t *testing.T) {
	lib := NewBackend(nil)
	require.NoError(t, lib.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	defer lib.Detach()

	bk, err := lib.Books().Create(context.Background(), types.Book{Title: "Public API"})
	require.NoError(t, err)
	assert.NotZero(t, bk.ID)

	assert.ErrorIs(t, lib.Attach(types.Config{Backend: types.BackendSQLite}), types.ErrAlreadyAttached)
}
