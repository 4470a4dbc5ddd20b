// Package offscreen caches pre-composited object bitmaps.
//
// Each entry holds an object's image already scaled, rotated and faded so a
// frame only blits it. Entries are keyed by object id and validated by a
// Fingerprint of everything that affects pixels. Position is not part of the
// fingerprint: moving an object never forces a rebuild.
package offscreen

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gg"

	"github.com/gogpu/ggboard/internal/logging"
	"github.com/gogpu/ggboard/internal/lru"
)

// DefaultCapacity is the default number of cached bitmaps.
const DefaultCapacity = 80

// ErrNilEntry is returned when a build function yields no entry.
var ErrNilEntry = errors.New("offscreen: build returned nil entry")

// Tier selects the source resolution for a composite.
type Tier uint8

const (
	// TierFull composites the primary source.
	TierFull Tier = iota
	// TierPreview composites the preview source at low zoom.
	TierPreview
)

// PreviewZoom is the zoom below which TierPreview is used.
const PreviewZoom = 0.5

// TierForZoom returns the render tier for the given zoom factor.
func TierForZoom(zoom float64) Tier {
	if zoom < PreviewZoom {
		return TierPreview
	}
	return TierFull
}

// Fingerprint identifies the visual content of a cached bitmap.
type Fingerprint struct {
	W, H     float64
	Rotation float64
	Opacity  float64
	Source   string
	Content  string
	Tier     Tier
}

// Entry is a composited bitmap. Draw it at the object's (X+OffsetX, Y+OffsetY).
type Entry struct {
	Bitmap  *gg.ImageBuf
	OffsetX float64
	OffsetY float64

	fp Fingerprint
}

// Fingerprint returns the fingerprint the entry was built for.
func (e *Entry) Fingerprint() Fingerprint { return e.fp }

// Stats contains cache statistics for monitoring.
type Stats struct {
	Entries   int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache maps object ids to composited bitmaps with strict LRU eviction.
// It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, *Entry]

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a cache holding at most capacity bitmaps.
// A non-positive capacity selects DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{}
	c.entries = lru.New(capacity, lru.WithEvict(func(id string, _ *Entry) {
		c.evictions.Add(1)
		logging.Logger().Debug("offscreen: evicted", "id", id)
	}))
	return c
}

// Acquire returns the entry for id if it was built for fp. Otherwise it calls
// build, stores the result under id and returns it. A failed build drops any
// stale entry.
func (c *Cache) Acquire(id string, fp Fingerprint, build func() (*Entry, error)) (*Entry, error) {
	c.mu.Lock()
	if e, ok := c.entries.Get(id); ok && e.fp == fp {
		c.mu.Unlock()
		c.hits.Add(1)
		return e, nil
	}
	c.mu.Unlock()
	c.misses.Add(1)

	e, err := build()
	if err == nil && e == nil {
		err = ErrNilEntry
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.entries.Remove(id)
		return nil, err
	}
	e.fp = fp
	c.entries.Set(id, e)
	return e, nil
}

// Peek returns the entry for id without touching recency.
func (c *Cache) Peek(id string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Peek(id)
}

// Invalidate drops the entry for id.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(id)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Clear()
}

// Len returns the number of cached entries.
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
		Evictions: c.evictions.Load(),
	}
}
