package checker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livesrc_checks_total",
			Help: "Single URL checks by outcome",
		},
		[]string{"result"}, // ok, fail, timeout, panic, cancelled
	)

	// ProbesInFlight includes abandoned probes that have not exited yet.
	ProbesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "livesrc_probes_in_flight",
			Help: "Probe goroutines currently running",
		},
	)

	CheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "livesrc_check_duration_seconds",
			Help:    "Wall time of single URL checks as seen by the caller",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)
