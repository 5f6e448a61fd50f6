package library

import (
	"context"
	"slices"

	"github.com/mesh-intelligence/alchemist/pkg/query"
	"github.com/mesh-intelligence/alchemist/pkg/types"
)

// lookup is the cached result of GetByID.
type lookup[T any] struct {
	entity T
	found  bool
}

// cachedRepository serves reads from the query cache and invalidates the
// collection and entity keys after each successful write.
type cachedRepository[T types.Entity] struct {
	repo   types.Repository[T]
	cache  *query.Client
	opts   query.Options
	all    query.Key
	single func(id int64) query.Key
}

var _ types.Repository[types.Book] = (*cachedRepository[types.Book])(nil)

// GetAll returns a copy of the cached collection; callers may modify it.
func (r *cachedRepository[T]) GetAll(ctx context.Context) ([]T, error) {
	return cloned(query.Get(ctx, r.cache, r.all, r.repo.GetAll, r.opts))
}

// cloned copies a cached slice so callers never alias the cache.
func cloned[T any](s []T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	return slices.Clone(s), nil
}

func (r *cachedRepository[T]) GetByID(ctx context.Context, id int64) (T, bool, error) {
	res, err := query.Get(ctx, r.cache, r.single(id), func(ctx context.Context) (lookup[T], error) {
		e, found, err := r.repo.GetByID(ctx, id)
		return lookup[T]{entity: e, found: found}, err
	}, r.opts)
	if err != nil {
		var zero T
		return zero, false, err
	}
	return res.entity, res.found, nil
}

func (r *cachedRepository[T]) Create(ctx context.Context, e T) (T, error) {
	var created T
	err := r.cache.Mutate(ctx, func(ctx context.Context) error {
		var err error
		created, err = r.repo.Create(ctx, e)
		return err
	}, r.all)
	if err != nil {
		var zero T
		return zero, err
	}
	r.cache.Invalidate(ctx, r.single(created.Key()))
	return created, nil
}

func (r *cachedRepository[T]) Update(ctx context.Context, e T) (T, error) {
	var updated T
	err := r.cache.Mutate(ctx, func(ctx context.Context) error {
		var err error
		updated, err = r.repo.Update(ctx, e)
		return err
	}, r.all, r.single(e.Key()))
	return updated, err
}

func (r *cachedRepository[T]) Delete(ctx context.Context, id int64) error {
	return r.cache.Mutate(ctx, func(ctx context.Context) error {
		return r.repo.Delete(ctx, id)
	}, r.all, r.single(id))
}

// cachedCodex adds cached index lookups. Writes also invalidate the index
// keys of the entry before and after the write.
type cachedCodex struct {
	*cachedRepository[types.CodexEntry]
	codex types.CodexRepository
}

var _ types.CodexRepository = (*cachedCodex)(nil)

func (r *cachedCodex) ByBook(ctx context.Context, bookID *int64) ([]types.CodexEntry, error) {
	return cloned(query.Get(ctx, r.cache, CodexBookKey(bookID), func(ctx context.Context) ([]types.CodexEntry, error) {
		return r.codex.ByBook(ctx, bookID)
	}, r.opts))
}

func (r *cachedCodex) ByCategory(ctx context.Context, category string) ([]types.CodexEntry, error) {
	return cloned(query.Get(ctx, r.cache, CodexCategoryKey(category), func(ctx context.Context) ([]types.CodexEntry, error) {
		return r.codex.ByCategory(ctx, category)
	}, r.opts))
}

func (r *cachedCodex) Create(ctx context.Context, e types.CodexEntry) (types.CodexEntry, error) {
	created, err := r.cachedRepository.Create(ctx, e)
	if err != nil {
		return created, err
	}
	r.cache.Invalidate(ctx, codexKeys(created)...)
	return created, nil
}

func (r *cachedCodex) Update(ctx context.Context, e types.CodexEntry) (types.CodexEntry, error) {
	prev, found, err := r.codex.GetByID(ctx, e.ID)
	if err != nil {
		return types.CodexEntry{}, err
	}
	updated, err := r.cachedRepository.Update(ctx, e)
	if err != nil {
		return updated, err
	}
	keys := codexKeys(updated)
	if found {
		keys = append(keys, codexKeys(prev)...)
	}
	r.cache.Invalidate(ctx, keys...)
	return updated, nil
}

func (r *cachedCodex) Delete(ctx context.Context, id int64) error {
	prev, found, err := r.codex.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.cachedRepository.Delete(ctx, id); err != nil {
		return err
	}
	if found {
		r.cache.Invalidate(ctx, codexKeys(prev)...)
	}
	return nil
}
