package query

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"
)

// Fetcher loads the value for a key.
type Fetcher func(ctx context.Context) (any, error)

// Options control a single query.
type Options struct {
	// StaleTime is how long a result is served from cache. Zero means the
	// Client default; a negative value means always refetch.
	StaleTime time.Duration
}

// State is what subscribers observe for a key.
type State struct {
	Data      any
	IsLoading bool
	Err       error
	UpdatedAt time.Time
}

// Listener receives State changes for a subscribed key.
type Listener func(State)

type entry struct {
	mu        sync.Mutex
	state     State
	hasData   bool
	stale     bool
	gen       uint64 // bumped by every invalidation
	fetcher   Fetcher
	opts      Options
	observers map[uint64]Listener
	nextObs   uint64
}

// Client is the reactive cache. The zero value is not usable; use NewClient.
type Client struct {
	entries   *xsync.MapOf[Key, *entry]
	inflight  singleflight.Group
	staleTime time.Duration
	now       func() time.Time
	logger    *slog.Logger
	metrics   *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithStaleTime sets the default stale time.
func WithStaleTime(d time.Duration) Option {
	return func(c *Client) { c.staleTime = d }
}

// WithClock replaces time.Now for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger sets the logger used for fetch failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics sets the counters the client updates.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// DefaultStaleTime is used when no stale time is configured.
const DefaultStaleTime = 5 * time.Minute

// NewClient returns an empty cache.
func NewClient(opts ...Option) *Client {
	c := &Client{
		entries:   xsync.NewMapOf[Key, *entry](),
		staleTime: DefaultStaleTime,
		now:       time.Now,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:   NewMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Metrics returns the client's counters.
func (c *Client) Metrics() *Metrics { return c.metrics }

func (c *Client) entry(key Key) *entry {
	e, _ := c.entries.LoadOrCompute(key, func() *entry {
		return &entry{observers: map[uint64]Listener{}}
	})
	return e
}

func (c *Client) fresh(e *entry) bool {
	if !e.hasData || e.stale {
		return false
	}
	stale := e.opts.StaleTime
	if stale == 0 {
		stale = c.staleTime
	}
	if stale < 0 {
		return false
	}
	return c.now().Sub(e.state.UpdatedAt) < stale
}

// Query returns the cached value for key if it is fresh, and otherwise
// fetches it. Concurrent callers for the same key share one fetch; the
// fetch keeps running if the caller that started it is cancelled.
func (c *Client) Query(ctx context.Context, key Key, fetch Fetcher, opts Options) (any, error) {
	e := c.entry(key)

	e.mu.Lock()
	e.fetcher = fetch
	e.opts = opts
	if c.fresh(e) {
		data := e.state.Data
		e.mu.Unlock()
		c.metrics.Hits.WithLabelValues(key.Root()).Inc()
		return data, nil
	}
	e.mu.Unlock()
	c.metrics.Misses.WithLabelValues(key.Root()).Inc()

	return c.fetch(ctx, key, e, fetch)
}

// fetch runs fetch once per key at a time and publishes the result. The
// shared fetch is detached from the caller's cancellation; a cancelled
// caller stops waiting without failing the others. When the result
// predates an invalidation and the key has subscribers, it fetches again.
func (c *Client) fetch(ctx context.Context, key Key, e *entry, fetch Fetcher) (any, error) {
	for {
		v, err := c.fetchOnce(ctx, key, e, fetch)
		if err != nil {
			return nil, err
		}

		e.mu.Lock()
		again := e.stale && len(e.observers) > 0 && e.fetcher != nil
		if again {
			fetch = e.fetcher
		}
		e.mu.Unlock()
		if !again {
			return v, nil
		}
	}
}

func (c *Client) fetchOnce(ctx context.Context, key Key, e *entry, fetch Fetcher) (any, error) {
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.inflight.DoChan(string(key), func() (any, error) {
		c.metrics.Fetches.WithLabelValues(key.Root()).Inc()
		var startGen uint64
		c.publish(e, func(s *State) {
			s.IsLoading = true
			startGen = e.gen
		})

		data, err := fetch(fetchCtx)
		if err != nil {
			c.metrics.FetchErrors.WithLabelValues(key.Root()).Inc()
			c.logger.Warn("query fetch failed", "key", string(key), "err", err)
			c.publish(e, func(s *State) {
				s.IsLoading = false
				s.Err = err
			})
			return nil, err
		}

		now := c.now()
		c.publish(e, func(s *State) {
			s.Data = data
			s.IsLoading = false
			s.Err = nil
			s.UpdatedAt = now
			e.hasData = true
			// A result started before an invalidation is served but stays stale.
			e.stale = e.gen != startGen
		})
		return data, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("query %s: %w", key, res.Err)
		}
		return res.Val, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("query %s: %w", key, ctx.Err())
	}
}

// publish applies update under the entry lock and notifies observers with
// the resulting State outside it.
func (c *Client) publish(e *entry, update func(*State)) {
	e.mu.Lock()
	update(&e.state)
	state := e.state
	listeners := make([]Listener, 0, len(e.observers))
	for _, l := range e.observers {
		listeners = append(listeners, l)
	}
	e.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}

// Mutate runs fn and, if it succeeds, invalidates keys. A failed mutation
// invalidates nothing.
func (c *Client) Mutate(ctx context.Context, fn func(ctx context.Context) error, keys ...Key) error {
	if err := fn(ctx); err != nil {
		return err
	}
	c.Invalidate(ctx, keys...)
	return nil
}

// Invalidate marks keys stale. Keys with active subscribers are refetched
// before Invalidate returns; refetch failures reach subscribers as
// State.Err.
func (c *Client) Invalidate(ctx context.Context, keys ...Key) {
	for _, key := range keys {
		e, ok := c.entries.Load(key)
		if !ok {
			continue
		}
		c.metrics.Invalidations.WithLabelValues(key.Root()).Inc()

		e.mu.Lock()
		e.stale = true
		e.gen++
		fetch := e.fetcher
		active := len(e.observers) > 0
		e.mu.Unlock()

		if active && fetch != nil {
			c.fetch(ctx, key, e, fetch)
		}
	}
}

// Subscribe registers listener for key. The listener is called with the
// current State and then on every change. If the cached value is not fresh
// Subscribe fetches it before returning. The returned function removes the
// listener.
func (c *Client) Subscribe(ctx context.Context, key Key, fetch Fetcher, opts Options, listener Listener) (unsubscribe func()) {
	e := c.entry(key)

	e.mu.Lock()
	id := e.nextObs
	e.nextObs++
	e.observers[id] = listener
	e.fetcher = fetch
	e.opts = opts
	fresh := c.fresh(e)
	state := e.state
	e.mu.Unlock()

	listener(state)
	if !fresh {
		c.metrics.Misses.WithLabelValues(key.Root()).Inc()
		c.fetch(ctx, key, e, fetch)
	} else {
		c.metrics.Hits.WithLabelValues(key.Root()).Inc()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.observers, id)
			e.mu.Unlock()
		})
	}
}

// Peek returns the State cached for key without fetching.
func (c *Client) Peek(key Key) (State, bool) {
	e, ok := c.entries.Load(key)
	if !ok {
		return State{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.hasData
}

// IsStale reports whether key has no fresh cached value.
func (c *Client) IsStale(key Key) bool {
	e, ok := c.entries.Load(key)
	if !ok {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return !c.fresh(e)
}

// Get is a typed Query.
func Get[T any](ctx context.Context, c *Client, key Key, fetch func(ctx context.Context) (T, error), opts Options) (T, error) {
	v, err := c.Query(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}, opts)
	if err != nil {
		var zero T
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("query %s: cached %T, want %T", key, v, zero)
	}
	return t, nil
}
