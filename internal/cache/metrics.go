package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by cache name
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftshop_cache_hits_total",
			Help: "Total number of in-memory cache hits",
		},
		[]string{"cache"},
	)

	// CacheMisses tracks cache misses, expired lookups included
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftshop_cache_misses_total",
			Help: "Total number of in-memory cache misses",
		},
		[]string{"cache"},
	)

	// CacheEvictions tracks entries dropped by the LRU policy
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftshop_cache_evictions_total",
			Help: "Total number of entries evicted at capacity",
		},
		[]string{"cache"},
	)

	// CacheExpirations tracks entries purged after their TTL elapsed
	CacheExpirations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftshop_cache_expirations_total",
			Help: "Total number of entries purged after TTL expiry",
		},
		[]string{"cache"},
	)

	// CacheEntries tracks the number of held entries
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "giftshop_cache_entries",
			Help: "Current number of entries held by the cache",
		},
		[]string{"cache"},
	)
)

type cacheMetrics struct {
	hits        prometheus.Counter
	misses      prometheus.Counter
	evictions   prometheus.Counter
	expirations prometheus.Counter
	entries     prometheus.Gauge
}

func metricsFor(name string) *cacheMetrics {
	return &cacheMetrics{
		hits:        CacheHits.WithLabelValues(name),
		misses:      CacheMisses.WithLabelValues(name),
		evictions:   CacheEvictions.WithLabelValues(name),
		expirations: CacheExpirations.WithLabelValues(name),
		entries:     CacheEntries.WithLabelValues(name),
	}
}
