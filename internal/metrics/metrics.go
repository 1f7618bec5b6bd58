// Package metrics exposes Prometheus collectors for the acquisition pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cacheLookupsTotal      *prometheus.CounterVec
	inflightCoalescedTotal *prometheus.CounterVec
	fetchDurationSeconds   *prometheus.HistogramVec
	fetchesTotal           *prometheus.CounterVec
	resolveAttemptsTotal   *prometheus.CounterVec
	resolveOutcomesTotal   *prometheus.CounterVec
	browsersLive           prometheus.Gauge
	browsersBusy           prometheus.Gauge
	poolWaitSeconds        prometheus.Histogram
	breakerOpensTotal      *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		cacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netawatch_cache_lookups_total",
				Help: "Cache lookups, labeled by namespace and result (hit/miss/expired).",
			},
			[]string{"namespace", "result"},
		)

		inflightCoalescedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netawatch_inflight_coalesced_total",
				Help: "Callers that joined an already in-flight computation, by namespace.",
			},
			[]string{"namespace"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "netawatch_fetch_duration_seconds",
				Help:    "Fetch latencies, labeled by mode (plain/rendered).",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"mode"},
		)

		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netawatch_fetches_total",
				Help: "Fetch attempts, labeled by mode and outcome.",
			},
			[]string{"mode", "outcome"},
		)

		resolveAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netawatch_resolve_attempts_total",
				Help: "Candidate URLs attempted per role.",
			},
			[]string{"role"},
		)

		resolveOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netawatch_resolve_outcomes_total",
				Help: "Resolution outcomes (found/not_found), by requested role.",
			},
			[]string{"role", "outcome"},
		)

		browsersLive = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "netawatch_browsers_live",
				Help: "Number of live headless browser processes.",
			},
		)

		browsersBusy = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "netawatch_browsers_busy",
				Help: "Number of browser handles currently held by fetches.",
			},
		)

		poolWaitSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "netawatch_pool_wait_seconds",
				Help:    "Time spent waiting for a browser handle.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30},
			},
		)

		breakerOpensTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netawatch_breaker_opens_total",
				Help: "Circuit breaker transitions to the open state, by host.",
			},
			[]string{"host"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCacheLookup records a cache lookup result for a namespace.
func ObserveCacheLookup(namespace, result string) {
	cacheLookupsTotal.WithLabelValues(namespace, result).Inc()
}

// ObserveCoalesced counts a caller that joined an in-flight computation.
func ObserveCoalesced(namespace string) {
	inflightCoalescedTotal.WithLabelValues(namespace).Inc()
}

// ObserveFetch records one fetch attempt.
func ObserveFetch(mode, outcome string, duration time.Duration) {
	fetchesTotal.WithLabelValues(mode, outcome).Inc()
	fetchDurationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveResolveAttempt counts one candidate URL attempt for a role.
func ObserveResolveAttempt(role string) {
	resolveAttemptsTotal.WithLabelValues(role).Inc()
}

// ObserveResolveOutcome records the terminal outcome of a resolution.
func ObserveResolveOutcome(role, outcome string) {
	resolveOutcomesTotal.WithLabelValues(role, outcome).Inc()
}

// SetBrowsersLive updates the live browser gauge.
func SetBrowsersLive(n int) {
	browsersLive.Set(float64(n))
}

// SetBrowsersBusy updates the busy handle gauge.
func SetBrowsersBusy(n int) {
	browsersBusy.Set(float64(n))
}

// ObservePoolWait records how long an acquire waited.
func ObservePoolWait(d time.Duration) {
	poolWaitSeconds.Observe(d.Seconds())
}

// ObserveBreakerOpen counts a breaker opening for a host.
func ObserveBreakerOpen(host string) {
	breakerOpensTotal.WithLabelValues(host).Inc()
}
