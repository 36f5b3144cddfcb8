package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
)

// Counter vectors are registered once at package init time and labeled by
// stage per Runner instance — multiple Runners (including ones spun up in
// tests) share the same registration instead of each trying to register
// its own collector.
var (
	ticksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipeline",
		Subsystem: "runner",
		Name:      "ticks_total",
		Help:      "Total number of runner ticks, one per worker iteration.",
	}, []string{"stage"})

	claimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipeline",
		Subsystem: "runner",
		Name:      "claims_total",
		Help:      "Total number of submissions successfully claimed and processed.",
	}, []string{"stage"})

	idleTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipeline",
		Subsystem: "runner",
		Name:      "idle_ticks_total",
		Help:      "Total number of ticks where the stage's source queue was empty.",
	}, []string{"stage"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipeline",
		Subsystem: "runner",
		Name:      "errors_total",
		Help:      "Total number of worker tick errors other than an empty queue.",
	}, []string{"stage"})
)

// metrics holds the per-stage Prometheus counters a Runner updates every
// tick, scraped alongside the in-process Health() struct.
type metrics struct {
	ticks     prometheus.Counter
	claims    prometheus.Counter
	idleTicks prometheus.Counter
	errors    prometheus.Counter
}

func newMetrics(stage lifecycle.Stage) *metrics {
	label := prometheus.Labels{"stage": string(stage)}
	return &metrics{
		ticks:     ticksTotal.With(label),
		claims:    claimsTotal.With(label),
		idleTicks: idleTicksTotal.With(label),
		errors:    errorsTotal.With(label),
	}
}
