// Package dedup decides whether a captured text was seen recently.
//
// DeriveKey turns (source, element, content) into a key; Cache remembers the
// most recently used keys up to a fixed capacity. The persistent store's
// UNIQUE(dedup_key) constraint catches whatever falls out of the cache.
package dedup

import (
	"container/list"
	"sync"
	"time"
)

// DefaultCapacity is used when NewCache is given a non-positive capacity.
const DefaultCapacity = 200

// Cache is a strict LRU set of keys, each stamped with its first-seen time.
// Safe for concurrent use.
type Cache struct {
	mu    sync.Mutex
	cap   int
	ll    *list.List               // most-recent at front
	items map[string]*list.Element // key -> element
	now   func() time.Time
}

type entry struct {
	key  string
	seen time.Time
}

// NewCache returns a cache holding at most capacity keys.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		cap:   capacity,
		ll:    list.New(),
		items: make(map[string]*list.Element, capacity),
		now:   time.Now,
	}
}

// IsDuplicate reports whether key is resident. A hit moves the key to the
// front without touching its timestamp; a miss records key and returns false,
// evicting the least recently used key if the cache is full.
func (c *Cache) IsDuplicate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		return true
	}

	el := c.ll.PushFront(entry{key: key, seen: c.now()})
	c.items[key] = el
	for c.ll.Len() > c.cap {
		tail := c.ll.Back()
		c.ll.Remove(tail)
		delete(c.items, tail.Value.(entry).key)
	}
	return false
}

// SeenAt returns when key was first recorded, without refreshing it.
func (c *Cache) SeenAt(key string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		return el.Value.(entry).seen, true
	}
	return time.Time{}, false
}

// Len returns the number of resident keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Cap returns the configured capacity.
func (c *Cache) Cap() int {
	return c.cap
}
