// Package metrics defines the Prometheus collectors for checkout
// reconciliation and order submission.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookworm"

// Pass results.
const (
	PassPassed       = "passed"
	PassFailed       = "failed"
	PassAbandoned    = "abandoned"
	PassAuthRequired = "auth_required"
	PassEmptyCart    = "empty_cart"
)

// Order submission results.
const (
	OrderAccepted = "accepted"
	OrderRejected = "rejected"
	OrderNetwork  = "network_error"
)

// Recorder owns the collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	outcomes      *prometheus.CounterVec
	passes        *prometheus.CounterVec
	lookupSeconds *prometheus.HistogramVec
	orders        *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "outcomes_total",
			Help:      "Per-line reconciliation outcomes by kind.",
		}, []string{"kind"}),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "passes_total",
			Help:      "Reconciliation passes by result.",
		}, []string{"result"}),
		lookupSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "lookup_seconds",
			Help:      "Catalog lookup latency by status.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"status"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "submitted_total",
			Help:      "Order submissions by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		r.outcomes, r.passes, r.lookupSeconds, r.orders,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveOutcome counts one classified cart line.
func (r *Recorder) ObserveOutcome(kind string) {
	if r == nil {
		return
	}
	r.outcomes.WithLabelValues(kind).Inc()
}

// ObservePass counts one reconciliation pass.
func (r *Recorder) ObservePass(result string) {
	if r == nil {
		return
	}
	r.passes.WithLabelValues(result).Inc()
}

// ObserveLookup records one catalog lookup's latency.
func (r *Recorder) ObserveLookup(status string, d time.Duration) {
	if r == nil {
		return
	}
	r.lookupSeconds.WithLabelValues(status).Observe(d.Seconds())
}

// ObserveOrder counts one order submission.
func (r *Recorder) ObserveOrder(result string) {
	if r == nil {
		return
	}
	r.orders.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry for tests and custom handlers.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
