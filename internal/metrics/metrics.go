package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReviewOps counts review store operations, labeled by operation and outcome.
	ReviewOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_operations_total",
		Help: "The total number of review store operations",
	}, []string{"op", "status"}) // op: create, update, delete, get, list; status: success, not_found, error

	// ReviewOpDuration measures the time taken by a review store operation.
	ReviewOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "review_operation_duration_seconds",
		Help:    "Time taken to execute a review store operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	// IndexRebuilds counts full per-movie index rebuilds.
	IndexRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_index_rebuilds_total",
		Help: "The total number of per-movie review index rebuilds",
	})

	// HTTPRequests counts incoming API requests, labeled by route and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "The total number of handled HTTP requests",
	}, []string{"route", "status"})

	// AuditWriteFailures counts audit records that could not be persisted.
	AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_write_failures_total",
		Help: "Total number of audit records that failed to persist",
	})
)
