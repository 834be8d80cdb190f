package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Key identifies a cached read against the data store.
type Key struct {
	// Entity is the record family (e.g., "products", "product", "banners")
	Entity string

	// ID narrows the key to a single record
	ID string

	// Params are the filter parameters; empty values are skipped
	Params map[string]string
}

// String generates a deterministic cache key string.
// Format: entity[:id][:param1=val1:param2=val2]
//
// Example:
//
//	products:featured=true:search=mug
func (k Key) String() string {
	parts := []string{k.Entity}

	if k.ID != "" {
		parts = append(parts, k.ID)
	}

	// Add params (sorted for determinism)
	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name, value := range k.Params {
			if value == "" {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Params[name]))
		}
	}

	return strings.Join(parts, ":")
}

// Prefix returns the prefix shared by every key of the entity.
func (k Key) Prefix() string {
	return k.Entity + ":"
}

// DeletePrefix removes every key that equals prefix without its trailing
// separator or starts with prefix. It returns how many keys were removed.
func DeletePrefix[V any](c Cache[string, V], prefix string) int {
	bare := strings.TrimSuffix(prefix, ":")
	removed := 0
	for _, key := range c.Keys() {
		if key == bare || strings.HasPrefix(key, prefix) {
			if c.Delete(key) {
				removed++
			}
		}
	}
	return removed
}
