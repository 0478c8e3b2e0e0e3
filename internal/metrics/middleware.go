package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTP metrics, labelled by method, chi route pattern and status code.
var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "surgo",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "surgo",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration, httpRequestsTotal)
}

// Middleware instruments each request with a duration histogram and a
// request counter. Paths are labelled by the matched chi route pattern,
// not the raw URL, to keep label cardinality bounded.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			labels := prometheus.Labels{
				"method": r.Method,
				"path":   normalizePath(chi.RouteContext(r.Context()).RoutePattern()),
				"status": strconv.Itoa(ww.Status()),
			}
			httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
			httpRequestsTotal.With(labels).Inc()
		})
	}
}

// normalizePath labels unmatched requests as "unknown" rather than by
// their raw URL.
func normalizePath(pattern string) string {
	if pattern == "" {
		return "unknown"
	}
	return pattern
}
