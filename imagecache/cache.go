// Package imagecache resolves image references to decoded bitmaps.
//
// Loads are asynchronous and deduplicated: concurrent resolves of the same
// reference share one in-flight fetch. Results live in a strict LRU bounded
// by entry count; entries with a pending load are pinned and never evicted.
// A failed load leaves a failure marker so the painter can draw a
// placeholder, and the next Resolve retries.
package imagecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gg"
	"golang.org/x/sync/singleflight"

	"github.com/gogpu/ggboard/internal/logging"
	"github.com/gogpu/ggboard/internal/lru"
)

// DefaultCapacity is the default number of cached bitmaps.
const DefaultCapacity = 120

// Sentinel errors.
var (
	// ErrEmptyRef is returned when Resolve is called with an empty reference.
	ErrEmptyRef = errors.New("imagecache: empty image reference")

	// ErrNoFetcher is returned when no Fetcher is configured.
	ErrNoFetcher = errors.New("imagecache: no fetcher configured")

	// ErrLoad wraps every fetch, open or decode failure.
	ErrLoad = errors.New("imagecache: load failed")
)

// State describes what the cache knows about a reference.
type State int

const (
	// StateMissing means the reference is not cached and not loading.
	StateMissing State = iota
	// StatePending means a load is in flight.
	StatePending
	// StateReady means the bitmap is cached.
	StateReady
	// StateFailed means the last load failed.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateMissing:
		return "missing"
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type entry struct {
	state  State
	bitmap *gg.ImageBuf
	err    error
}

// Stats contains cache statistics for monitoring.
type Stats struct {
	Entries   int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Loads     uint64
	Failures  uint64
	Evictions uint64
}

// Cache is a bounded, deduplicating bitmap cache.
// It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, *entry]
	group   singleflight.Group

	fetcher Fetcher
	opener  Opener

	hits      atomic.Uint64
	misses    atomic.Uint64
	loads     atomic.Uint64
	failures  atomic.Uint64
	evictions atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithCapacity sets the maximum number of cached bitmaps.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.entries.Resize(n)
		}
	}
}

// WithOpener replaces the default Opener.
func WithOpener(o Opener) Option {
	return func(c *Cache) {
		if o != nil {
			c.opener = o
		}
	}
}

// New creates a cache that resolves image ids through f.
func New(f Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher: f,
		opener:  FileOpener{},
	}
	c.entries = lru.New(DefaultCapacity,
		lru.WithPin(func(_ string, e *entry) bool { return e.state == StatePending }),
		lru.WithEvict(func(ref string, _ *entry) {
			c.evictions.Add(1)
			logging.Logger().Debug("imagecache: evicted", "ref", ref)
		}),
	)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the bitmap for ref, loading it if needed. Concurrent calls
// for the same ref share one load. Cancelling ctx abandons the wait but not
// the shared load.
func (c *Cache) Resolve(ctx context.Context, ref string) (*gg.ImageBuf, error) {
	if ref == "" {
		return nil, ErrEmptyRef
	}

	c.mu.Lock()
	e, ok := c.entries.Get(ref)
	if ok && e.state == StateReady {
		c.mu.Unlock()
		c.hits.Add(1)
		return e.bitmap, nil
	}
	if !ok || e.state == StateFailed {
		c.misses.Add(1)
		e = &entry{state: StatePending}
		c.entries.Set(ref, e)
	}
	c.mu.Unlock()

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(ref, func() (any, error) {
		return c.load(loadCtx, ref, e)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*gg.ImageBuf), nil
	}
}

// ResolveAsync starts resolving ref without blocking. done, if non-nil, is
// called from another goroutine with the result.
func (c *Cache) ResolveAsync(ref string, done func(*gg.ImageBuf, error)) {
	go func() {
		bmp, err := c.Resolve(context.Background(), ref)
		if done != nil {
			done(bmp, err)
		}
	}()
}

// Peek reports the cached bitmap and state of ref. A hit refreshes recency.
func (c *Cache) Peek(ref string) (*gg.ImageBuf, State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries.Get(ref)
	if !ok {
		return nil, StateMissing
	}
	return e.bitmap, e.state
}

// Err returns the error recorded for a failed ref, or nil.
func (c *Cache) Err(ref string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries.Peek(ref)
	if !ok {
		return nil
	}
	return e.err
}

// Invalidate drops ref. A load still in flight for it is discarded when it
// completes.
func (c *Cache) Invalidate(ref string) {
	c.mu.Lock()
	c.entries.Remove(ref)
	c.mu.Unlock()
	c.group.Forget(ref)
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	refs := c.entries.Keys()
	c.entries.Clear()
	c.mu.Unlock()
	for _, ref := range refs {
		c.group.Forget(ref)
	}
}

// Len returns the number of entries, including pending and failed ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Stats returns a snapshot of cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	n, capacity := c.entries.Len(), c.entries.Capacity()
	c.mu.Unlock()
	return Stats{
		Entries:   n,
		Capacity:  capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Loads:     c.loads.Load(),
		Failures:  c.failures.Load(),
		Evictions: c.evictions.Load(),
	}
}

// load runs once per in-flight ref and stores the outcome in e if e is still
// the live entry for ref.
func (c *Cache) load(ctx context.Context, ref string, e *entry) (*gg.ImageBuf, error) {
	c.loads.Add(1)
	bmp, err := c.fetchAndDecode(ctx, ref)

	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries.Peek(ref); ok && cur == e {
		if err != nil {
			e.state, e.err = StateFailed, err
		} else {
			e.state, e.bitmap = StateReady, bmp
		}
		// The entry is no longer pinned; catch up on deferred eviction.
		c.entries.Evict()
	}
	if err != nil {
		c.failures.Add(1)
		logging.Logger().Warn("imagecache: load failed", "ref", ref, "err", err)
		return nil, err
	}
	return bmp, nil
}

func (c *Cache) fetchAndDecode(ctx context.Context, ref string) (*gg.ImageBuf, error) {
	if c.fetcher == nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, ref, ErrNoFetcher)
	}
	local, err := c.fetcher.GetImageURL(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", ErrLoad, ref, err)
	}
	rc, err := c.opener.Open(ctx, local)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrLoad, ref, err)
	}
	defer rc.Close()

	bmp, err := Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrLoad, ref, err)
	}
	return bmp, nil
}
