package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TileRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mosaic_tile_requests_total",
		Help: "Total number of tile requests",
	})

	TileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mosaic_tile_cache_hits_total",
		Help: "Total number of tile cache hits",
	})

	TileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mosaic_tile_cache_misses_total",
		Help: "Total number of tile cache misses",
	})

	TileCacheStores = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mosaic_tile_cache_stores_total",
		Help: "Total number of tiles written to the cache",
	})

	UpstreamRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mosaic_upstream_requests_total",
		Help: "Total number of upstream tile server requests, retries included",
	})

	UpstreamLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mosaic_upstream_latency_seconds",
		Help:    "Latency of upstream tile fetches in seconds",
		Buckets: prometheus.DefBuckets,
	})

	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mosaic_upstream_errors_total",
		Help: "Total number of failed tile fetches by kind",
	}, []string{"kind"})

	MosaicAssemblies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mosaic_assemblies_total",
		Help: "Total number of mosaic assemblies by outcome",
	}, []string{"outcome"})

	MosaicDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mosaic_assembly_duration_seconds",
		Help:    "Duration of mosaic assembly in seconds",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	MosaicTiles = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mosaic_assembly_tiles",
		Help:    "Number of tiles per assembled mosaic",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)
