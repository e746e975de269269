// Package metrics exposes Prometheus collectors for the stepping engine.
//
// Collectors are registered on the Registerer passed to New rather than the
// global default, so several engines (and tests) can coexist. A nil
// Registerer yields working, unregistered collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "attractors"

type Metrics struct {
	// StepThread
	Appends       prometheus.Counter
	Rejected      prometheus.Counter
	Divergences   prometheus.Counter
	Reseeds       prometheus.Counter
	JoinTimeouts  prometheus.Counter
	RunningThread prometheus.Gauge
	StartSeconds  prometheus.Histogram
	JoinSeconds   prometheus.Histogram

	// Orchestrator
	EmitterBuilds *prometheus.CounterVec
	Frames        *prometheus.CounterVec
	Particles     prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Appends: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "step_thread",
			Name:      "appends_total",
			Help:      "Samples appended to the history ring",
		}),
		Rejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "step_thread",
			Name:      "rejected_appends_total",
			Help:      "Appends refused because the ring was full under stop-when-full",
		}),
		Divergences: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "step_thread",
			Name:      "divergences_total",
			Help:      "Integration steps that produced a non-finite sample",
		}),
		Reseeds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "step_thread",
			Name:      "reseeds_total",
			Help:      "Trajectory restarts after divergence",
		}),
		JoinTimeouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "step_thread",
			Name:      "join_timeouts_total",
			Help:      "Shutdowns whose join exceeded the configured timeout",
		}),
		RunningThread: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "step_thread",
			Name:      "running",
			Help:      "1 while a step thread is running",
		}),
		StartSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "step_thread",
			Name:      "start_seconds",
			Help:      "Time from start request to first sample",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		JoinSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "step_thread",
			Name:      "join_seconds",
			Help:      "Time spent joining the step thread on shutdown",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		EmitterBuilds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emitter",
			Name:      "builds_total",
			Help:      "Emitter builds by engine type",
		}, []string{"engine"}),
		Frames: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "frames_total",
			Help:      "Frames rendered by view",
		}, []string{"view"}),
		Particles: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "emitter",
			Name:      "particles",
			Help:      "Particles in the current emitted set",
		}),
	}
}
