package slotcache

import (
	"fmt"
	"slices"
)

// Entry is an occupied slot as returned by [Cache.Entries].
type Entry[V any] struct {
	Key   string
	Slot  int
	Value V
}

// slot is one fixed position in the backing array.
type slot[V any] struct {
	key      string
	value    V
	occupied bool
}

// Cache is a fixed-capacity key to value store.
//
// Slots are allocated from a LIFO free list of previously released slots
// first, then from the allocation cursor, which only moves forward over slots
// that have never been used. Both paths are O(1).
//
// The zero value is not usable; create caches with [New] or [Load].
type Cache[V any] struct {
	lookup map[string]int
	slots  []slot[V]
	free   []int
	cursor int
}

// New returns an empty cache with capacity unoccupied slots.
func New[V any](capacity int) (*Cache[V], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("capacity must be >= 1, got %d: %w", capacity, ErrInvalidInput)
	}

	if capacity > MaxCapacity {
		return nil, fmt.Errorf("capacity %d exceeds maximum %d: %w", capacity, MaxCapacity, ErrInvalidInput)
	}

	return &Cache[V]{
		lookup: make(map[string]int),
		slots:  make([]slot[V], capacity),
	}, nil
}

// Len returns the number of occupied slots.
func (c *Cache[V]) Len() int {
	return len(c.lookup)
}

// Cap returns the fixed slot capacity.
func (c *Cache[V]) Cap() int {
	return len(c.slots)
}

// Get returns the value stored under key.
func (c *Cache[V]) Get(key string) (V, bool) {
	idx, ok := c.lookup[key]
	if !ok || !c.slots[idx].occupied {
		var zero V

		return zero, false
	}

	return c.slots[idx].value, true
}

// Contains reports whether key is present.
func (c *Cache[V]) Contains(key string) bool {
	_, ok := c.lookup[key]

	return ok
}

// SlotOf returns the slot index holding key.
func (c *Cache[V]) SlotOf(key string) (int, bool) {
	idx, ok := c.lookup[key]

	return idx, ok
}

// Insert stores value under key in a free slot.
//
// Returns [ErrDuplicateKey] if key is already present and [ErrFull] if no
// free slot exists. The cache is unchanged on error.
func (c *Cache[V]) Insert(key string, value V) error {
	if len(key) > maxKeyBytes {
		return fmt.Errorf("key length %d exceeds maximum %d: %w", len(key), maxKeyBytes, ErrInvalidInput)
	}

	if _, ok := c.lookup[key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}

	idx, ok := c.allocate()
	if !ok {
		return fmt.Errorf("%w: all %d slots occupied", ErrFull, len(c.slots))
	}

	c.slots[idx] = slot[V]{key: key, value: value, occupied: true}
	c.lookup[key] = idx

	return nil
}

// Remove clears the slot holding key and returns its value.
// It is a no-op returning false when key is absent.
func (c *Cache[V]) Remove(key string) (V, bool) {
	idx, ok := c.lookup[key]
	if !ok {
		var zero V

		return zero, false
	}

	value := c.slots[idx].value
	c.release(key, idx)

	return value, true
}

// Retain removes every entry for which keep returns false and frees its slot.
// Entries are visited in slot order. Returns the number of removed entries.
//
// keep must not mutate the cache.
func (c *Cache[V]) Retain(keep func(key string, value V) bool) int {
	removed := 0

	for idx := range c.slots {
		s := &c.slots[idx]
		if !s.occupied {
			continue
		}

		if keep(s.key, s.value) {
			continue
		}

		c.release(s.key, idx)
		removed++
	}

	return removed
}

// BatchQuery returns the values of all present keys in slot order.
//
// Returns false if none of keys is present. A key listed more than once is
// returned once.
func (c *Cache[V]) BatchQuery(keys []string) ([]V, bool) {
	indexes := make([]int, 0, len(keys))

	for _, key := range keys {
		if idx, ok := c.lookup[key]; ok {
			indexes = append(indexes, idx)
		}
	}

	if len(indexes) == 0 {
		return nil, false
	}

	slices.Sort(indexes)
	indexes = slices.Compact(indexes)

	values := make([]V, 0, len(indexes))
	for _, idx := range indexes {
		values = append(values, c.slots[idx].value)
	}

	return values, true
}

// Keys returns all present keys, sorted.
func (c *Cache[V]) Keys() []string {
	keys := make([]string, 0, len(c.lookup))
	for key := range c.lookup {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}

// Entries returns all occupied slots in slot order.
func (c *Cache[V]) Entries() []Entry[V] {
	entries := make([]Entry[V], 0, len(c.lookup))

	for idx, s := range c.slots {
		if s.occupied {
			entries = append(entries, Entry[V]{Key: s.key, Slot: idx, Value: s.value})
		}
	}

	return entries
}

// Clear removes all entries and resets allocation to the first slot.
func (c *Cache[V]) Clear() {
	clear(c.lookup)
	clear(c.slots)
	c.free = c.free[:0]
	c.cursor = 0
}

// allocate picks the next slot: most recently released first, then the
// cursor.
func (c *Cache[V]) allocate() (int, bool) {
	if n := len(c.free); n > 0 {
		idx := c.free[n-1]
		c.free = c.free[:n-1]

		return idx, true
	}

	if c.cursor < len(c.slots) {
		idx := c.cursor
		c.cursor++

		return idx, true
	}

	return 0, false
}

// release drops key from the lookup map and clears its slot together.
func (c *Cache[V]) release(key string, idx int) {
	delete(c.lookup, key)
	c.slots[idx] = slot[V]{}
	c.free = append(c.free, idx)
}
