// Package lru provides the strict least-recently-used map shared by the
// bitmap caches.
//
// Unlike a soft-limit cache, eviction is exact: after an insertion the map
// holds at most Capacity entries, dropping the least recently touched ones
// first. Entries for which the pin predicate reports true are skipped by
// eviction, so the map may temporarily exceed its capacity while every
// remaining entry is pinned.
//
// Cache is not thread-safe; callers handle synchronization.
package lru

// node is a node in the doubly-linked recency list.
type node[K comparable, V any] struct {
	key   K
	value V
	prev  *node[K, V]
	next  *node[K, V]
}

// Cache is a capacity-bounded map with strict LRU eviction.
// The head of the list is the most recently used entry.
type Cache[K comparable, V any] struct {
	capacity int
	entries  map[K]*node[K, V]
	head     *node[K, V]
	tail     *node[K, V]

	pinned  func(K, V) bool
	onEvict func(K, V)
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithPin sets the predicate that protects entries from eviction.
func WithPin[K comparable, V any](pinned func(K, V) bool) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.pinned = pinned
	}
}

// WithEvict sets a callback invoked for every entry dropped by eviction.
// It is not called for explicit Remove or Clear.
func WithEvict[K comparable, V any](fn func(K, V)) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.onEvict = fn
	}
}

// New creates a cache holding at most capacity entries.
// A capacity below 1 is treated as 1.
func New[K comparable, V any](capacity int, opts ...Option[K, V]) *Cache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	c := &Cache[K, V]{
		capacity: capacity,
		entries:  make(map[K]*node[K, V]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Capacity returns the configured bound.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	return len(c.entries)
}

// Get returns the value for key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	n, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(n)
	return n.value, true
}

// Peek returns the value for key without changing recency.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	n, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return n.value, true
}

// Contains reports whether key is present without changing recency.
func (c *Cache[K, V]) Contains(key K) bool {
	_, ok := c.entries[key]
	return ok
}

// Set stores value under key as the most recently used entry, then evicts
// down to capacity. It returns the number of entries evicted.
func (c *Cache[K, V]) Set(key K, value V) int {
	if n, ok := c.entries[key]; ok {
		n.value = value
		c.moveToFront(n)
		return c.evict()
	}

	n := &node[K, V]{key: key, value: value}
	c.pushFront(n)
	c.entries[key] = n
	return c.evict()
}

// Remove deletes key. It reports whether the key was present.
func (c *Cache[K, V]) Remove(key K) bool {
	n, ok := c.entries[key]
	if !ok {
		return false
	}
	c.unlink(n)
	delete(c.entries, key)
	return true
}

// Clear removes every entry.
func (c *Cache[K, V]) Clear() {
	c.entries = make(map[K]*node[K, V])
	c.head = nil
	c.tail = nil
}

// Keys returns all keys from most to least recently used.
func (c *Cache[K, V]) Keys() []K {
	keys := make([]K, 0, len(c.entries))
	for n := c.head; n != nil; n = n.next {
		keys = append(keys, n.key)
	}
	return keys
}

// Resize changes the capacity and evicts if needed.
func (c *Cache[K, V]) Resize(capacity int) int {
	if capacity < 1 {
		capacity = 1
	}
	c.capacity = capacity
	return c.evict()
}

// Evict drops unpinned entries from the tail until the cache is within
// capacity. Callers use it after unpinning entries.
func (c *Cache[K, V]) Evict() int {
	return c.evict()
}

func (c *Cache[K, V]) evict() int {
	evicted := 0
	n := c.tail
	for len(c.entries) > c.capacity && n != nil {
		prev := n.prev
		if c.pinned == nil || !c.pinned(n.key, n.value) {
			c.unlink(n)
			delete(c.entries, n.key)
			evicted++
			if c.onEvict != nil {
				c.onEvict(n.key, n.value)
			}
		}
		n = prev
	}
	return evicted
}

func (c *Cache[K, V]) pushFront(n *node[K, V]) {
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *Cache[K, V]) moveToFront(n *node[K, V]) {
	if n == c.head {
		return
	}
	c.unlink(n)
	c.pushFront(n)
}

// unlink removes n from the list and clears its pointers.
func (c *Cache[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev = nil
	n.next = nil
}
