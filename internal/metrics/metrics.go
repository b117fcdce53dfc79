// Package metrics exports onboarding funnel counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vanshika/indica/backend/internal/onboarding"
)

const namespace = "indica"

// Recorder implements onboarding.Observer on a private registry.
type Recorder struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	failures    *prometheus.CounterVec
	calls       *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	stale       prometheus.Counter
}

var _ onboarding.Observer = (*Recorder)(nil)

// New registers the onboarding collectors. Process and Go runtime collectors
// are added when withRuntime is set.
func New(withRuntime bool) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "onboarding",
			Name:      "transitions_total",
			Help:      "Stage transitions performed by signup wizards.",
		}, []string{"from", "to"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "onboarding",
			Name:      "validation_failures_total",
			Help:      "Advance attempts rejected by stage validation.",
		}, []string{"stage", "reason"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "onboarding",
			Name:      "remote_calls_total",
			Help:      "Remote calls issued by the wizard, by outcome.",
		}, []string{"call", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "onboarding",
			Name:      "remote_call_duration_seconds",
			Help:      "Latency of remote calls issued by the wizard.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"call"}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "onboarding",
			Name:      "stale_lookups_total",
			Help:      "Address lookup responses discarded because the postal code changed.",
		}),
	}

	r.registry.MustRegister(r.transitions, r.failures, r.calls, r.latency, r.stale)
	if withRuntime {
		r.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) StageChanged(from, to onboarding.Stage) {
	r.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (r *Recorder) ValidationFailed(stage onboarding.Stage, reason onboarding.Reason) {
	r.failures.WithLabelValues(stage.String(), string(reason)).Inc()
}

func (r *Recorder) RemoteCallFinished(call onboarding.Call, outcome onboarding.Outcome, elapsed time.Duration) {
	r.calls.WithLabelValues(string(call), string(outcome)).Inc()
	r.latency.WithLabelValues(string(call)).Observe(elapsed.Seconds())
}

func (r *Recorder) StaleLookupDiscarded() {
	r.stale.Inc()
}
