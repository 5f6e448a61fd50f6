package library

import (
	"context"
	"io"
	"log/slog"

	"github.com/mesh-intelligence/alchemist/pkg/autosave"
	"github.com/mesh-intelligence/alchemist/pkg/query"
	"github.com/mesh-intelligence/alchemist/pkg/types"
)

// Library is a cached, autosaving view of a store. It implements
// types.Library, so it can stand in for the store it wraps.
type Library struct {
	store    types.Library
	cache    *query.Client
	books    *cachedRepository[types.Book]
	codex    *cachedCodex
	autosave *autosave.Pipeline[int64, types.Book]
	logger   *slog.Logger
}

var _ types.Library = (*Library)(nil)

// Option configures a Library.
type Option func(*config)

type config struct {
	cache       *query.Client
	queryOpts   query.Options
	autosave    []autosave.Option
	onSaveError func(bookID int64, err error)
	logger      *slog.Logger
}

// WithCache uses c instead of a new query client.
func WithCache(c *query.Client) Option {
	return func(cfg *config) { cfg.cache = c }
}

// WithQueryOptions sets the options of every repository read.
func WithQueryOptions(o query.Options) Option {
	return func(cfg *config) { cfg.queryOpts = o }
}

// WithAutosave passes options to the autosave pipeline.
func WithAutosave(opts ...autosave.Option) Option {
	return func(cfg *config) { cfg.autosave = append(cfg.autosave, opts...) }
}

// OnSaveError registers a hook for failed background saves.
func OnSaveError(fn func(bookID int64, err error)) Option {
	return func(cfg *config) { cfg.onSaveError = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = l }
}

// New wraps store.
func New(store types.Library, opts ...Option) *Library {
	cfg := config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.cache == nil {
		cfg.cache = query.NewClient(query.WithLogger(cfg.logger))
	}

	l := &Library{store: store, cache: cfg.cache, logger: cfg.logger}
	l.books = &cachedRepository[types.Book]{
		repo:   store.Books(),
		cache:  cfg.cache,
		opts:   cfg.queryOpts,
		all:    BooksKey(),
		single: BookKey,
	}
	l.codex = &cachedCodex{
		cachedRepository: &cachedRepository[types.CodexEntry]{
			repo:   store.Codex(),
			cache:  cfg.cache,
			opts:   cfg.queryOpts,
			all:    CodexKey(),
			single: CodexEntryKey,
		},
		codex: store.Codex(),
	}

	onError := func(id int64, err error) {
		l.logger.Warn("background save failed", "book_id", id, "err", err)
		if cfg.onSaveError != nil {
			cfg.onSaveError(id, err)
		}
	}
	l.autosave = autosave.New(l.saveBook, onError,
		append([]autosave.Option{autosave.WithLogger(cfg.logger)}, cfg.autosave...)...)
	return l
}

func (l *Library) saveBook(ctx context.Context, _ int64, bk types.Book) error {
	_, err := l.books.Update(ctx, bk)
	return err
}

// Attach attaches the underlying store.
func (l *Library) Attach(config types.Config) error {
	return l.store.Attach(config)
}

// Detach flushes pending edits and detaches the store. The store is
// detached even if the flush fails; the flush error is returned.
func (l *Library) Detach() error {
	flushErr := l.autosave.FlushAll(context.Background())
	if err := l.store.Detach(); err != nil {
		return err
	}
	return flushErr
}

// Books returns the cached book repository.
func (l *Library) Books() types.Repository[types.Book] { return l.books }

// Codex returns the cached codex repository.
func (l *Library) Codex() types.CodexRepository { return l.codex }

// Cache returns the query client.
func (l *Library) Cache() *query.Client { return l.cache }

// Autosave returns the book autosave pipeline.
func (l *Library) Autosave() *autosave.Pipeline[int64, types.Book] { return l.autosave }

// SubscribeBooks observes the book collection query.
func (l *Library) SubscribeBooks(ctx context.Context, listener query.Listener) (unsubscribe func()) {
	return l.cache.Subscribe(ctx, BooksKey(), func(ctx context.Context) (any, error) {
		return l.store.Books().GetAll(ctx)
	}, l.books.opts, listener)
}
