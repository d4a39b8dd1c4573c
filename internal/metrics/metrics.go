// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixtrack_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fixtrack_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RecordsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fixtrack_records_created_total",
		Help: "Repair records created.",
	})

	RecordsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fixtrack_records_deleted_total",
		Help: "Repair records deleted.",
	})

	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixtrack_logins_total",
			Help: "Login and registration attempts by kind and result.",
		},
		[]string{"kind", "result"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixtrack_cache_lookups_total",
			Help: "Report cache lookups by key and result.",
		},
		[]string{"key", "result"},
	)
)
