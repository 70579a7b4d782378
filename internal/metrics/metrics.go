// Package metrics exposes the Prometheus instrumentation of the
// simulation service. Collectors are package-level and registered once at
// init, so any layer can record without carrying a registry around.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ExperimentsStarted counts Monte Carlo experiments accepted for
	// execution.
	ExperimentsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simres_experiments_started_total",
		Help: "Monte Carlo experiments accepted for execution",
	})

	// ExperimentsRunning tracks how many experiments are executing
	// replicas right now.
	ExperimentsRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simres_experiments_running",
		Help: "Experiments currently executing replicas",
	})

	// ReplicasFinished counts finished replicas by outcome state.
	ReplicasFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simres_replicas_finished_total",
		Help: "Finished replicas by outcome (completed or failed)",
	}, []string{"estado"})

	// ReplicaDuration observes the wall-clock seconds of single replicas.
	ReplicaDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simres_replica_duration_seconds",
		Help:    "Wall-clock duration of one simulation replica",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	// SimulationsRun counts standalone (non-experiment) simulation runs.
	SimulationsRun = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simres_simulations_total",
		Help: "Standalone simulation runs",
	})
)

func init() {
	prometheus.MustRegister(
		ExperimentsStarted,
		ExperimentsRunning,
		ReplicasFinished,
		ReplicaDuration,
		SimulationsRun,
	)
}
