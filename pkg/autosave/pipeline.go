package autosave

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/zeebo/xxh3"
)

// Class groups fields by how quickly their edits must be persisted.
type Class int

const (
	// ClassContent covers the document body.
	ClassContent Class = iota
	// ClassMetadata covers title, author and cover.
	ClassMetadata
)

// Default debounce windows.
const (
	ContentWindow  = 300 * time.Millisecond
	MetadataWindow = 1000 * time.Millisecond
)

func (c Class) String() string {
	switch c {
	case ClassContent:
		return "content"
	case ClassMetadata:
		return "metadata"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Status is the persistence state of one key.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSaving
	StatusSaved
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusSaving:
		return "saving"
	case StatusSaved:
		return "saved"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// SaveFunc persists v under key.
type SaveFunc[K comparable, V any] func(ctx context.Context, key K, v V) error

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("autosave pipeline is closed")

type task[V any] struct {
	flushMu sync.Mutex // serializes writes for the key

	mu         sync.Mutex
	pending    V
	hasPending bool
	window     time.Duration
	timer      Timer
	gen        uint64 // generation of the latest edit
	committed  uint64 // generation of the last successful write
	lastHash   uint64
	hasHash    bool
	status     Status
	lastErr    error
	failed     V
	failedGen  uint64
	hasFailed  bool
}

// Pipeline debounces writes per key.
type Pipeline[K comparable, V any] struct {
	save    SaveFunc[K, V]
	tasks   *xsync.MapOf[K, *task[V]]
	sched   Scheduler
	windows map[Class]time.Duration
	encode  func(V) ([]byte, error)
	onError func(K, error)
	logger  *slog.Logger
	metrics *Metrics

	mu     sync.RWMutex
	closed bool
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	sched   Scheduler
	windows map[Class]time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

// WithScheduler replaces the wall-clock timer.
func WithScheduler(s Scheduler) Option {
	return func(o *options) { o.sched = s }
}

// WithWindow sets the debounce window for class.
func WithWindow(c Class, d time.Duration) Option {
	return func(o *options) { o.windows[c] = d }
}

// WithLogger sets the logger used for write failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the counters the pipeline updates.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New returns a pipeline that persists with save. onError, if not nil,
// receives failures of scheduled flushes.
func New[K comparable, V any](save SaveFunc[K, V], onError func(K, error), opts ...Option) *Pipeline[K, V] {
	o := options{
		sched:   wallClock{},
		windows: map[Class]time.Duration{ClassContent: ContentWindow, ClassMetadata: MetadataWindow},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Pipeline[K, V]{
		save:    save,
		tasks:   xsync.NewMapOf[K, *task[V]](),
		sched:   o.sched,
		windows: o.windows,
		encode:  func(v V) ([]byte, error) { return json.Marshal(v) },
		onError: onError,
		logger:  o.logger,
		metrics: o.metrics,
	}
}

// Metrics returns the pipeline's counters.
func (p *Pipeline[K, V]) Metrics() *Metrics { return p.metrics }

// Submit buffers v as the latest value for key and reschedules its flush.
// The flush fires after the shortest window among the classes buffered
// since the last flush.
func (p *Pipeline[K, V]) Submit(key K, class Class, v V) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	t, _ := p.tasks.LoadOrCompute(key, func() *task[V] { return &task[V]{} })
	window := p.windows[class]

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hasPending {
		p.metrics.Coalesced.Inc()
		if window > t.window {
			window = t.window
		}
	}
	t.gen++
	t.pending = v
	t.hasPending = true
	t.window = window
	t.status = StatusPending
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = p.sched.AfterFunc(window, func() { p.scheduledFlush(key) })
	return nil
}

func (p *Pipeline[K, V]) scheduledFlush(key K) {
	if err := p.Flush(context.Background(), key); err != nil && p.onError != nil {
		p.onError(key, err)
	}
}

// Flush writes the pending value for key now. It returns nil if nothing is
// pending.
func (p *Pipeline[K, V]) Flush(ctx context.Context, key K) error {
	t, ok := p.tasks.Load(key)
	if !ok {
		return nil
	}
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	t.mu.Lock()
	if !t.hasPending {
		t.mu.Unlock()
		return nil
	}
	v, gen := t.pending, t.gen
	var zero V
	t.pending, t.hasPending = zero, false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()

	return p.write(ctx, key, t, v, gen)
}

// write persists v as generation gen. The caller holds t.flushMu.
func (p *Pipeline[K, V]) write(ctx context.Context, key K, t *task[V], v V, gen uint64) error {
	t.mu.Lock()
	if gen <= t.committed {
		t.mu.Unlock()
		p.metrics.Discarded.Inc()
		p.logger.Debug("stale autosave discarded", "key", key, "gen", gen)
		return nil
	}
	t.status = StatusSaving
	t.mu.Unlock()

	var hash uint64
	data, err := p.encode(v)
	if err == nil {
		hash = xxh3.Hash(data)
		t.mu.Lock()
		same := t.hasHash && t.lastHash == hash && !t.hasFailed
		if same {
			t.committed = gen
			t.settle()
		}
		t.mu.Unlock()
		if same {
			p.metrics.Unchanged.Inc()
			return nil
		}
	}

	if err := p.save(ctx, key, v); err != nil {
		p.metrics.Failures.Inc()
		p.logger.Error("autosave failed", "key", key, "err", err)
		t.mu.Lock()
		t.status = StatusFailed
		t.lastErr = err
		t.failed, t.failedGen, t.hasFailed = v, gen, true
		t.mu.Unlock()
		return fmt.Errorf("autosave %v: %w", key, err)
	}

	p.metrics.Writes.Inc()
	t.mu.Lock()
	t.committed = gen
	t.lastHash, t.hasHash = hash, data != nil
	var zero V
	t.failed, t.failedGen, t.hasFailed = zero, 0, false
	t.lastErr = nil
	t.settle()
	t.mu.Unlock()
	return nil
}

// settle sets the status after a successful write. The caller holds t.mu.
func (t *task[V]) settle() {
	if t.hasPending {
		t.status = StatusPending
	} else {
		t.status = StatusSaved
	}
}

// FlushAll flushes every key with a pending value and joins the errors.
func (p *Pipeline[K, V]) FlushAll(ctx context.Context) error {
	var errs []error
	p.tasks.Range(func(key K, _ *task[V]) bool {
		if err := p.Flush(ctx, key); err != nil {
			errs = append(errs, err)
		}
		return true
	})
	return errors.Join(errs...)
}

// Retry re-submits the last failed value for key. If a newer edit is
// pending it is flushed instead.
func (p *Pipeline[K, V]) Retry(ctx context.Context, key K) error {
	t, ok := p.tasks.Load(key)
	if !ok {
		return nil
	}

	t.mu.Lock()
	pending := t.hasPending
	t.mu.Unlock()
	if pending {
		return p.Flush(ctx, key)
	}

	t.flushMu.Lock()
	defer t.flushMu.Unlock()
	t.mu.Lock()
	if !t.hasFailed {
		t.mu.Unlock()
		return nil
	}
	v, gen := t.failed, t.failedGen
	t.mu.Unlock()
	return p.write(ctx, key, t, v, gen)
}

// Status reports the persistence state of key and the last write error.
func (p *Pipeline[K, V]) Status(key K) (Status, error) {
	t, ok := p.tasks.Load(key)
	if !ok {
		return StatusIdle, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.lastErr
}

// Pending reports whether key has an unflushed value.
func (p *Pipeline[K, V]) Pending(key K) bool {
	t, ok := p.tasks.Load(key)
	if !ok {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasPending
}

// Close flushes everything pending, cancels timers and rejects further
// edits.
func (p *Pipeline[K, V]) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	err := p.FlushAll(ctx)
	p.tasks.Range(func(_ K, t *task[V]) bool {
		t.mu.Lock()
		if t.timer != nil {
			t.timer.Stop()
			t.timer = nil
		}
		t.mu.Unlock()
		return true
	})
	return err
}
