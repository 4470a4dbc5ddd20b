package lru

import (
	"strconv"
	"testing"
)

func TestNewClampsCapacity(t *testing.T) {
	c := New[string, int](0)
	if c.Capacity() != 1 {
		t.Errorf("Capacity() = %d, want 1", c.Capacity())
	}
}

func TestGetSet(t *testing.T) {
	c := New[string, int](4)
	c.Set("a", 1)

	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Errorf("Get(a) = %d,%v, want 1,true", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss")
	}

	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("overwrite: got %d, want 2", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestStrictEvictionKeepsMostRecent(t *testing.T) {
	const capacity = 5
	for k := 1; k <= 7; k++ {
		t.Run("k="+strconv.Itoa(k), func(t *testing.T) {
			c := New[int, int](capacity)
			total := capacity + k
			for i := 0; i < total; i++ {
				c.Set(i, i)
			}
			if c.Len() != capacity {
				t.Fatalf("Len() = %d, want %d", c.Len(), capacity)
			}
			for i := total - capacity; i < total; i++ {
				if !c.Contains(i) {
					t.Errorf("expected key %d to survive", i)
				}
			}
			for i := 0; i < total-capacity; i++ {
				if c.Contains(i) {
					t.Errorf("expected key %d to be evicted", i)
				}
			}
		})
	}
}

func TestTouchOnRead(t *testing.T) {
	c := New[string, int](3)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	c.Get("a") // a becomes most recent
	c.Set("d", 4)

	if c.Contains("b") {
		t.Error("b should have been evicted as least recently used")
	}
	if !c.Contains("a") {
		t.Error("a was touched and must survive")
	}

	keys := c.Keys()
	want := []string{"d", "a", "c"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", keys, want)
		}
	}
}

func TestPeekDoesNotTouch(t *testing.T) {
	c := New[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Peek("a")
	c.Set("c", 3)
	if c.Contains("a") {
		t.Error("Peek must not refresh recency")
	}
}

func TestPinnedEntriesSurvive(t *testing.T) {
	pinned := map[string]bool{"a": true}
	var evicted []string
	c := New[string, int](2,
		WithPin(func(k string, _ int) bool { return pinned[k] }),
		WithEvict(func(k string, _ int) { evicted = append(evicted, k) }),
	)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if !c.Contains("a") {
		t.Fatal("pinned entry evicted")
	}
	if c.Contains("b") {
		t.Error("b should be evicted in place of pinned a")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Errorf("evicted = %v, want [b]", evicted)
	}

	// Everything pinned: the cache may exceed capacity.
	pinned["c"] = true
	pinned["d"] = true
	c.Set("d", 4)
	if c.Len() != 3 {
		t.Errorf("Len() with all entries pinned = %d, want 3", c.Len())
	}

	// Unpinning lets a later eviction pass catch up.
	pinned = map[string]bool{}
	c.Evict()
	if c.Len() != 2 {
		t.Errorf("Len() after Evict = %d, want 2", c.Len())
	}
	if !c.Contains("d") || !c.Contains("c") {
		t.Errorf("Evict should keep the most recent keys, have %v", c.Keys())
	}
}

func TestRemoveAndClear(t *testing.T) {
	c := New[string, int](3)
	c.Set("a", 1)
	c.Set("b", 2)
	if !c.Remove("a") {
		t.Error("Remove(a) = false")
	}
	if c.Remove("a") {
		t.Error("second Remove(a) = true")
	}
	c.Clear()
	if c.Len() != 0 || len(c.Keys()) != 0 {
		t.Error("Clear left entries")
	}
	c.Set("x", 1)
	if v, ok := c.Get("x"); !ok || v != 1 {
		t.Error("cache unusable after Clear")
	}
}

func TestResize(t *testing.T) {
	c := New[int, int](4)
	for i := 0; i < 4; i++ {
		c.Set(i, i)
	}
	if n := c.Resize(2); n != 2 {
		t.Errorf("Resize evicted %d, want 2", n)
	}
	if !c.Contains(2) || !c.Contains(3) {
		t.Error("Resize should keep the most recent entries")
	}
}
