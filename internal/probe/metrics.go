package probe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livesrc_probe_requests_total",
			Help: "Probe HTTP requests by method and outcome",
		},
		[]string{"method", "result"}, // result: ok, status, error, rejected
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "livesrc_probe_request_duration_seconds",
			Help:    "Latency of probe HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	BreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livesrc_probe_breaker_transitions_total",
			Help: "Per-host circuit breaker state transitions",
		},
		[]string{"to"},
	)

	FFProbeRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livesrc_ffprobe_runs_total",
			Help: "ffprobe invocations by outcome",
		},
		[]string{"result"}, // ok, error, no_stream
	)
)
