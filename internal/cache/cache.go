// Package cache provides an in-process LRU cache with TTL expiry for
// answered queries.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Stats is a snapshot of cache effectiveness counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
	MaxSize   int
}

// HitRate returns hits / (hits + misses), or 0 for an unused cache.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type item struct {
	key       string
	value     any
	expiresAt time.Time
}

// QueryCache is a bounded LRU cache with per-entry TTL. Safe for
// concurrent use.
type QueryCache struct {
	mu        sync.Mutex
	maxSize   int
	ttl       time.Duration
	order     *list.List // front = most recently used
	items     map[string]*list.Element
	hits      uint64
	misses    uint64
	evictions uint64
	now       func() time.Time
}

// New creates a cache holding at most maxSize entries, each valid for ttl.
func New(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &QueryCache{
		maxSize: maxSize,
		ttl:     ttl,
		order:   list.New(),
		items:   make(map[string]*list.Element),
		now:     time.Now,
	}
}

// Key builds a stable cache key from the query identity.
func Key(question, collection, filterLevel string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", question, collection, filterLevel)))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached value for key. Expired entries are removed and
// count as misses.
func (c *QueryCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}

	it := el.Value.(*item)
	if c.now().After(it.expiresAt) {
		c.order.Remove(el)
		delete(c.items, key)
		c.misses++
		return nil, false
	}

	c.order.MoveToFront(el)
	c.hits++
	return it.value, true
}

// Set stores a value, evicting the least recently used entry when full.
func (c *QueryCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)

	if el, ok := c.items[key]; ok {
		it := el.Value.(*item)
		it.value = value
		it.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	if len(c.items) >= c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*item).key)
			c.evictions++
		}
	}

	el := c.order.PushFront(&item{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = el
}

// Clear drops all entries. Counters are preserved.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
}

// Stats returns a snapshot of the counters.
func (c *QueryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.items),
		MaxSize:   c.maxSize,
	}
}
