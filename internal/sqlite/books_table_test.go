package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/alchemist/pkg/types"
)

func TestBooks_CreateThenGet(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	books := b.Books()

	in := types.Book{Title: "A", Author: "B", CoverURL: "", Content: ""}
	created, err := books.Create(ctx, in)
	require.NoError(t, err)

	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.True(t, created.CreatedAt.Equal(created.UpdatedAt), "createdAt should equal updatedAt on create")

	got, found, err := books.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, in.Title, got.Title)
	assert.Equal(t, in.Author, got.Author)
	assert.Equal(t, in.CoverURL, got.CoverURL)
	assert.Equal(t, in.Content, got.Content)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, created.UpdatedAt.Equal(got.UpdatedAt))
}

func TestBooks_CreateAssignsFreshKeys(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	first, err := b.Books().Create(ctx, types.Book{ID: 42, Title: "One"})
	require.NoError(t, err)
	second, err := b.Books().Create(ctx, types.Book{ID: 42, Title: "Two"})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Less(t, first.ID, second.ID)
}

func TestBooks_CreateValidation(t *testing.T) {
	b := setupBackend(t)
	_, err := b.Books().Create(context.Background(), types.Book{Author: "Nobody"})
	assert.ErrorIs(t, err, types.ErrValidation)

	all, err := b.Books().GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "failed validation must not write")
}

func TestBooks_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("content change is persisted and updatedAt increases", func(t *testing.T) {
		b := setupBackend(t)
		created, err := b.Books().Create(ctx, types.Book{Title: "A", Author: "B"})
		require.NoError(t, err)

		fetched, found, err := b.Books().GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, found)

		fetched.Content = "hello"
		updated, err := b.Books().Update(ctx, fetched)
		require.NoError(t, err)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

		got, _, err := b.Books().GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "hello", got.Content)
		assert.True(t, got.UpdatedAt.After(got.CreatedAt))
		assert.True(t, got.CreatedAt.Equal(created.CreatedAt), "createdAt is kept")
	})

	t.Run("updatedAt strictly increases with a frozen clock", func(t *testing.T) {
		frozen := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
		b := setupBackend(t, WithClock(fixedClock(frozen)))

		bk, err := b.Books().Create(ctx, types.Book{Title: "Frozen"})
		require.NoError(t, err)
		prev := bk.UpdatedAt
		for i := 0; i < 3; i++ {
			bk.Content += "x"
			bk, err = b.Books().Update(ctx, bk)
			require.NoError(t, err)
			assert.True(t, bk.UpdatedAt.After(prev))
			prev = bk.UpdatedAt
		}
	})

	t.Run("caller-supplied createdAt is ignored", func(t *testing.T) {
		b := setupBackend(t)
		bk, err := b.Books().Create(ctx, types.Book{Title: "A"})
		require.NoError(t, err)
		original := bk.CreatedAt

		bk.CreatedAt = time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)
		updated, err := b.Books().Update(ctx, bk)
		require.NoError(t, err)
		assert.True(t, updated.CreatedAt.Equal(original))
	})

	t.Run("absent key is not found and nothing is created", func(t *testing.T) {
		b := setupBackend(t)
		_, err := b.Books().Update(ctx, types.Book{ID: 999, Title: "Ghost"})
		assert.ErrorIs(t, err, types.ErrNotFound)

		all, err := b.Books().GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("zero key is invalid", func(t *testing.T) {
		b := setupBackend(t)
		_, err := b.Books().Update(ctx, types.Book{Title: "No key"})
		assert.ErrorIs(t, err, types.ErrInvalidID)
	})
}

func TestBooks_Delete(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	keep, err := b.Books().Create(ctx, types.Book{Title: "Keep"})
	require.NoError(t, err)
	gone, err := b.Books().Create(ctx, types.Book{Title: "Gone"})
	require.NoError(t, err)

	require.NoError(t, b.Books().Delete(ctx, gone.ID))

	_, found, err := b.Books().GetByID(ctx, gone.ID)
	require.NoError(t, err)
	assert.False(t, found)

	all, err := b.Books().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, keep.ID, all[0].ID)

	assert.NoError(t, b.Books().Delete(ctx, gone.ID), "deleting an absent key is not an error")
	assert.NoError(t, b.Books().Delete(ctx, 12345))
}

func TestBooks_GetByIDAbsent(t *testing.T) {
	b := setupBackend(t)
	got, found, err := b.Books().GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, types.Book{}, got)
}

func TestBooks_GetAllEmptyIsNotNil(t *testing.T) {
	b := setupBackend(t)
	all, err := b.Books().GetAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Len(t, all, 0)
}
