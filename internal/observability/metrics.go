// Package observability exposes Prometheus metrics and the ops HTTP
// endpoints (/healthz, /metrics).
package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// Delivery attempts by outcome (sent, recipient_unreachable,
	// transient_failure). Watch for: unreachable growth = blocked users,
	// transient spikes = Telegram trouble.
	NotificationsTotal *prometheus.CounterVec

	// Notifications rejected at the queue. Nonzero means the dispatcher
	// cannot keep up with a scheduler run.
	NotificationsDroppedTotal prometheus.Counter

	// Scheduler stage latency (alerts, daily). Watch for: runs approaching
	// the tick interval.
	SchedulerStageDuration *prometheus.HistogramVec

	// Upstream fetch counts by provider and status.
	ProviderRequestsTotal *prometheus.CounterVec

	cacheFuncsMu sync.Mutex
	cacheFuncs   map[string]struct{}
)

func init() {
	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherbot_notifications_total",
			Help: "Delivery attempts by outcome",
		},
		[]string{"outcome"},
	)
	NotificationsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherbot_notifications_dropped_total",
			Help: "Notifications rejected because the dispatch queue was full",
		},
	)
	SchedulerStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherbot_scheduler_stage_duration_seconds",
			Help:    "Wall time of one scheduler stage run",
			Buckets: []float64{.1, .5, 1, 5, 15, 60, 300},
		},
		[]string{"stage"},
	)
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherbot_provider_requests_total",
			Help: "Upstream API calls by provider and status",
		},
		[]string{"provider", "status"},
	)

	registry.MustRegister(
		NotificationsTotal, NotificationsDroppedTotal,
		SchedulerStageDuration, ProviderRequestsTotal,
	)
	cacheFuncs = map[string]struct{}{}
}

// RegisterCacheStats exposes a cache's cumulative hit/miss counters as
// counter functions. Repeated registration for the same name is a no-op.
func RegisterCacheStats(name string, stats func() (hits, misses uint64)) {
	cacheFuncsMu.Lock()
	defer cacheFuncsMu.Unlock()
	if _, dup := cacheFuncs[name]; dup {
		return
	}
	cacheFuncs[name] = struct{}{}
	labels := prometheus.Labels{"cache": name}
	registry.MustRegister(
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Name:        "weatherbot_cache_hits_total",
				Help:        "Cache hits",
				ConstLabels: labels,
			},
			func() float64 { hits, _ := stats(); return float64(hits) },
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Name:        "weatherbot_cache_misses_total",
				Help:        "Cache misses",
				ConstLabels: labels,
			},
			func() float64 { _, misses := stats(); return float64(misses) },
		),
	)
}

// MetricsHandler serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
