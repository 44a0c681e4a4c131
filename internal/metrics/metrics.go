// Package metrics holds the Prometheus collectors shared by the CLI and the
// worker. Collectors live in their own registry so tests can read them back.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "subtrack"

// Registry is the registry every subtrack collector is registered with.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// StoreFallbacks counts synchronized-store operations that fell back to
	// the local store, by operation (read, write).
	StoreFallbacks = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_fallbacks_total",
		Help:      "Synchronized store operations served by the local store instead.",
	}, []string{"operation"})

	// Migrations counts collection copies by direction and result.
	Migrations = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "migrations_total",
		Help:      "Collection migrations between local and synchronized stores.",
	}, []string{"direction", "result"})

	// RepositoryOps counts repository operations by name and result.
	RepositoryOps = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "repository_operations_total",
		Help:      "Record repository operations.",
	}, []string{"operation", "result"})

	// SyncDuration observes SyncNow round-trips.
	SyncDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sync_duration_seconds",
		Help:      "Duration of load-then-save sync round-trips.",
		Buckets:   prometheus.DefBuckets,
	})

	// Records is the size of the collection after the last repository write.
	Records = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "records",
		Help:      "Number of records in the collection after the last write.",
	})

	// SyncEnabled is 1 while the synchronized store is authoritative.
	SyncEnabled = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sync_enabled",
		Help:      "1 when the synchronized store is authoritative.",
	})

	// Notifications counts change notifications published and received.
	Notifications = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Collection change notifications by direction and result.",
	}, []string{"direction", "result"})

	// HTTPRequests counts requests served by the worker's HTTP endpoints.
	HTTPRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Requests to the worker's HTTP endpoints by path and status code.",
	}, []string{"path", "code"})
)

// Result labels
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// Bool converts a flag to a gauge value.
func Bool(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
