package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of calls to the to-do API",
		},
		[]string{"op", "status"},
	)

	upstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Histogram of to-do API call durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(upstreamRequestsTotal, upstreamRequestDuration)
}

func observe(op, status string, start time.Time) {
	upstreamRequestsTotal.WithLabelValues(op, status).Inc()
	upstreamRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
