package cache

import "time"

// DefaultTTL is applied by SetDefault and by Fetch when no TTL is given.
const DefaultTTL = 5 * time.Minute

// DefaultMaxSize bounds a cache constructed without an explicit MaxSize.
const DefaultMaxSize = 100

// Cache defines a bounded key-value cache with a TTL per entry.
// Misses and expiry are reported through the boolean results, never as errors.
type Cache[K comparable, V any] interface {
	// Get returns the value and whether it was present and not expired.
	// An expired entry found here is removed.
	Get(key K) (V, bool)

	// Set stores the value for ttl. A negative ttl is treated as zero.
	Set(key K, value V, ttl time.Duration)

	// SetDefault stores the value with the cache's default TTL.
	SetDefault(key K, value V)

	// Has reports whether a key is present and not expired, purging it if expired.
	Has(key K) bool

	// Delete removes a key and reports whether it was held.
	Delete(key K) bool

	// Keys returns every held key, including expired entries not yet purged.
	Keys() []K

	// Len returns the number of held entries, including expired entries not yet purged.
	Len() int

	// Clear removes all entries.
	Clear()

	// Cleanup removes every expired entry and returns how many were removed.
	Cleanup() int
}

// Ensure LRUCache implements Cache at compile time.
var _ Cache[string, any] = (*LRUCache[string, any])(nil)
