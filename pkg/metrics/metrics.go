// Package metrics documents the Prometheus metrics of the Upcoming client.
// Metrics are defined next to the code that records them (client, cache)
// and registered through promauto on the default registerer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves the metrics of the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - upcoming_requests_total{method, status} (Counter): Calls by "namespace.method" and outcome
//     (ok, cached, api, transport, decode, error)
//   - upcoming_request_duration_seconds{method} (Histogram): Call duration including cache lookup
//   - upcoming_errors_total{class} (Counter): Errors by class (transport, api, decode)
//
// Cache Metrics (pkg/cache):
//   - upcoming_cache_hits_total{backend} (Counter): Cache hits by backend (memory, memcache, redis)
//   - upcoming_cache_misses_total (Counter): Cache misses
//   - upcoming_cache_written_bytes_total{backend} (Counter): Encoded bytes written
//   - upcoming_cache_errors_total{operation} (Counter): Backend errors by operation (get, set)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(upcoming_cache_hits_total[5m])) /
//   (sum(rate(upcoming_cache_hits_total[5m])) + sum(rate(upcoming_cache_misses_total[5m])))
//
//   # API Failure Rate
//   rate(upcoming_errors_total{class="api"}[5m])
//
//   # P95 Call Latency
//   histogram_quantile(0.95, rate(upcoming_request_duration_seconds_bucket[5m]))
