package cache

import (
	"container/list"
	"sync"
	"time"
)

// entry stores a cached value with the data needed for expiry and LRU ranking.
type entry[K comparable, V any] struct {
	key          K
	value        V
	storedAt     time.Time
	ttl          time.Duration
	accessCount  uint64
	lastAccessed time.Time
}

// expired reports whether more than ttl has elapsed since the entry was stored.
func (e *entry[K, V]) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// Options controls construction of an LRUCache.
type Options struct {
	// Name labels the cache in metrics and logs.
	Name string

	// MaxSize bounds the number of held entries. Zero or less means DefaultMaxSize.
	MaxSize int

	// DefaultTTL is used by SetDefault. Zero or less means DefaultTTL.
	DefaultTTL time.Duration

	// ConcurrencySafe controls whether operations are guarded by a mutex.
	// If false, the cache must only be used from a single goroutine.
	ConcurrencySafe bool

	// Now overrides the wall clock, mainly for tests.
	Now func() time.Time
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
	Entries     int    `json:"entries"`
	MaxSize     int    `json:"max_size"`
}

// LRUCache is a map plus doubly linked list cache with per-entry TTL and
// least-recently-used eviction. The list front holds the most recently used entry.
//
// Expired entries are purged lazily by Get/Has or actively by Cleanup; there is
// no background goroutine (see StartJanitor).
type LRUCache[K comparable, V any] struct {
	// If mu is nil, the cache is NOT goroutine-safe.
	mu *sync.Mutex

	name       string
	maxSize    int
	defaultTTL time.Duration
	now        func() time.Time

	items map[K]*list.Element
	order *list.List

	stats   Stats
	metrics *cacheMetrics
}

// NewLRUCache constructs a new LRUCache with the given options.
func NewLRUCache[K comparable, V any](opts Options) *LRUCache[K, V] {
	var mu *sync.Mutex
	if opts.ConcurrencySafe {
		mu = &sync.Mutex{}
	}
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	name := opts.Name
	if name == "" {
		name = "default"
	}
	return &LRUCache[K, V]{
		mu:         mu,
		name:       name,
		maxSize:    maxSize,
		defaultTTL: ttl,
		now:        now,
		items:      make(map[K]*list.Element),
		order:      list.New(),
		metrics:    metricsFor(name),
	}
}

func (c *LRUCache[K, V]) lock() func() {
	if c.mu == nil {
		return func() {}
	}
	c.mu.Lock()
	return c.mu.Unlock
}

// Name returns the cache's metrics label.
func (c *LRUCache[K, V]) Name() string {
	return c.name
}

// Get implements Cache.Get.
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	unlock := c.lock()
	defer unlock()

	var zero V
	e, ok := c.lookup(key)
	if !ok {
		c.stats.Misses++
		c.metrics.misses.Inc()
		return zero, false
	}

	e.accessCount++
	e.lastAccessed = c.now()
	c.order.MoveToFront(c.items[key])

	c.stats.Hits++
	c.metrics.hits.Inc()
	return e.value, true
}

// Set implements Cache.Set. Replacing an existing key resets its access
// statistics; inserting a new key at capacity evicts exactly one entry.
func (c *LRUCache[K, V]) Set(key K, value V, ttl time.Duration) {
	unlock := c.lock()
	defer unlock()

	if ttl < 0 {
		ttl = 0
	}
	ts := c.now()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value = value
		e.storedAt = ts
		e.ttl = ttl
		e.accessCount = 0
		e.lastAccessed = ts
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.maxSize {
		c.evictOldest()
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{
		key:          key,
		value:        value,
		storedAt:     ts,
		ttl:          ttl,
		lastAccessed: ts,
	})
	c.metrics.entries.Set(float64(c.order.Len()))
}

// SetDefault implements Cache.SetDefault.
func (c *LRUCache[K, V]) SetDefault(key K, value V) {
	c.Set(key, value, c.defaultTTL)
}

// DefaultTTL returns the TTL used by SetDefault.
func (c *LRUCache[K, V]) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Has implements Cache.Has. It does not count as an access for LRU ranking.
func (c *LRUCache[K, V]) Has(key K) bool {
	unlock := c.lock()
	defer unlock()
	_, ok := c.lookup(key)
	return ok
}

// Delete implements Cache.Delete.
func (c *LRUCache[K, V]) Delete(key K) bool {
	unlock := c.lock()
	defer unlock()
	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.remove(el)
	return true
}

// Keys implements Cache.Keys, most recently used first.
func (c *LRUCache[K, V]) Keys() []K {
	unlock := c.lock()
	defer unlock()
	keys := make([]K, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[K, V]).key)
	}
	return keys
}

// Len implements Cache.Len.
func (c *LRUCache[K, V]) Len() int {
	unlock := c.lock()
	defer unlock()
	return c.order.Len()
}

// Clear implements Cache.Clear.
func (c *LRUCache[K, V]) Clear() {
	unlock := c.lock()
	defer unlock()
	c.items = make(map[K]*list.Element)
	c.order.Init()
	c.metrics.entries.Set(0)
}

// Cleanup implements Cache.Cleanup.
func (c *LRUCache[K, V]) Cleanup() int {
	unlock := c.lock()
	defer unlock()
	if c.order.Len() == 0 {
		return 0
	}
	ts := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*entry[K, V]).expired(ts) {
			c.remove(el)
			c.stats.Expirations++
			c.metrics.expirations.Inc()
			removed++
		}
		el = prev
	}
	return removed
}

// Stats returns a snapshot of the cache counters.
func (c *LRUCache[K, V]) Stats() Stats {
	unlock := c.lock()
	defer unlock()
	s := c.stats
	s.Entries = c.order.Len()
	s.MaxSize = c.maxSize
	return s
}

// lookup returns the live entry for key, deleting it when expired.
// Callers must hold the lock.
func (c *LRUCache[K, V]) lookup(key K) (*entry[K, V], bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry[K, V])
	if e.expired(c.now()) {
		c.remove(el)
		c.stats.Expirations++
		c.metrics.expirations.Inc()
		return nil, false
	}
	return e, true
}

// evictOldest drops the least recently used entry. Callers must hold the lock.
func (c *LRUCache[K, V]) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.remove(el)
	c.stats.Evictions++
	c.metrics.evictions.Inc()
}

func (c *LRUCache[K, V]) remove(el *list.Element) {
	e := c.order.Remove(el).(*entry[K, V])
	delete(c.items, e.key)
	c.metrics.entries.Set(float64(c.order.Len()))
}
