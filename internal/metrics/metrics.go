package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "movieshell",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, route and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "movieshell",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.3, 1, 5, 30, 120},
	}, []string{"method", "path"})

	CatalogEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "movieshell",
		Name:      "catalog_entries",
		Help:      "Number of entries in the current catalog snapshot.",
	})

	CatalogLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "movieshell",
		Name:      "catalog_loads_total",
		Help:      "Catalog loads by result (ok, placeholder, invalid_schema, decode_error, unreadable).",
	}, []string{"result"})

	BytesServedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "movieshell",
		Name:      "bytes_served_total",
		Help:      "Bytes written in asset response bodies by response kind (full, partial).",
	}, []string{"kind"})

	RangeRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "movieshell",
		Name:      "range_requests_total",
		Help:      "Range requests by result (partial, invalid, unsatisfiable, ignored).",
	}, []string{"result"})

	TransfersInterruptedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "movieshell",
		Name:      "transfers_interrupted_total",
		Help:      "Asset transfers aborted before the full body was written.",
	})

	ActiveTransfers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "movieshell",
		Name:      "active_transfers",
		Help:      "Asset bodies currently being written.",
	})

	SearchCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "movieshell",
		Name:      "search_cache_hits_total",
		Help:      "Search queries answered from the match cache.",
	})

	SearchCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "movieshell",
		Name:      "search_cache_misses_total",
		Help:      "Search queries evaluated against the catalog.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CatalogEntries,
		CatalogLoadsTotal,
		BytesServedTotal,
		RangeRequestsTotal,
		TransfersInterruptedTotal,
		ActiveTransfers,
		SearchCacheHits,
		SearchCacheMisses,
	)
}
