package etagcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits counts conditional GETs answered with a 304 from the cache.
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etagcache_hits_total",
			Help: "Total number of conditional GETs short-circuited from the cache",
		},
	)

	// cacheMisses counts lookups that fell through to the application.
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etagcache_misses_total",
			Help: "Total number of cache lookups that missed",
		},
	)

	// cacheStores counts validator sets written to the backend.
	cacheStores = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etagcache_stores_total",
			Help: "Total number of validator sets stored",
		},
	)

	// cacheBypasses counts requests where a backend failure disabled the layer.
	cacheBypasses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etagcache_bypasses_total",
			Help: "Total number of requests that bypassed the cache layer",
		},
	)

	// invalidations counts namespace token bumps by scope kind.
	invalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etagcache_invalidations_total",
			Help: "Total number of namespace tokens regenerated",
		},
		[]string{"scope"}, // "any", "class", "instance"
	)
)
