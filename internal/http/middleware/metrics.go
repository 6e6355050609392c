package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "livesrc_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	RejectedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livesrc_http_rejected_requests_total",
			Help: "Requests rejected by the concurrency limiter",
		},
		[]string{"limiter"},
	)
)
