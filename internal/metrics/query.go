package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query execution Prometheus metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "surgo",
			Name:      "queries_total",
			Help:      "Total number of submitted queries",
		},
		[]string{"status"},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "surgo",
			Name:      "query_duration_seconds",
			Help:      "Query round-trip duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"status"},
	)

	QueryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "surgo",
			Name:      "query_cache_total",
			Help:      "Query cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var queryMetricsRegistered bool

// RegisterQueryMetrics registers Prometheus query metrics. Must be called
// once from main.
func RegisterQueryMetrics() {
	if queryMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryCacheTotal)
	queryMetricsRegistered = true
}
