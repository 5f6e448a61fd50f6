package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/alchemist/pkg/types"
)

func seedLibrary(t *testing.T, b *Backend) (types.Book, types.CodexEntry) {
	t.Helper()
	ctx := context.Background()
	bk, err := b.Books().Create(ctx, types.Book{Title: "The Athanor", Author: "R. Vale", Content: "Chapter one"})
	require.NoError(t, err)
	e, err := b.Codex().Create(ctx, types.CodexEntry{BookID: &bk.ID, Category: types.CategoryItems, Name: "Athanor", Description: "a furnace"})
	require.NoError(t, err)
	return bk, e
}

func TestExportImport(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "zstd"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			src := setupBackend(t)
			bk, entry := seedLibrary(t, src)

			dir := t.TempDir()
			require.NoError(t, src.Export(ctx, dir, ExportOptions{Compress: compress}))
			_, err := os.Stat(exportPath(dir, booksFile, compress))
			require.NoError(t, err)

			dst := setupBackend(t)
			res, err := dst.Import(ctx, dir)
			require.NoError(t, err)
			assert.Equal(t, ImportResult{Books: 1, Codex: 1}, res)

			got, found, err := dst.Books().GetByID(ctx, bk.ID)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, bk.Title, got.Title)
			assert.Equal(t, bk.Content, got.Content)
			assert.True(t, bk.CreatedAt.Equal(got.CreatedAt))

			gotEntry, found, err := dst.Codex().GetByID(ctx, entry.ID)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, entry, gotEntry)
		})
	}
}

func TestImport_SkipsExistingAndMalformed(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	seedLibrary(t, b)

	dir := t.TempDir()
	require.NoError(t, b.Export(ctx, dir, ExportOptions{}))

	// Append a malformed line and a record that fails validation.
	f, err := os.OpenFile(filepath.Join(dir, booksFile), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n{\"id\":77,\"title\":\"\"}\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	res, err := b.Import(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Books)
	assert.Equal(t, 0, res.Codex)
	assert.Equal(t, 3, res.Skipped, "two existing keys and one invalid book")

	all, err := b.Books().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestImport_EmptyDirectory(t *testing.T) {
	b := setupBackend(t)
	res, err := b.Import(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ImportResult{}, res)
}

func TestImport_NewKeysContinueAfterImported(t *testing.T) {
	ctx := context.Background()
	src := setupBackend(t)
	for i := 0; i < 3; i++ {
		_, err := src.Books().Create(ctx, types.Book{Title: "Draft"})
		require.NoError(t, err)
	}
	dir := t.TempDir()
	require.NoError(t, src.Export(ctx, dir, ExportOptions{}))

	dst := setupBackend(t)
	_, err := dst.Import(ctx, dir)
	require.NoError(t, err)

	next, err := dst.Books().Create(ctx, types.Book{Title: "After import"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), next.ID)
}
