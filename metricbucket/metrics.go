// Package metricbucket instruments a pathy.BucketClient with Prometheus
// metrics: an operation counter, an error counter broken down by error kind,
// an operation duration histogram, and a counter of blob bytes transferred.
//
// Like tracebucket, this wraps an existing client rather than providing a
// backend. Install the wrapped client with pathy.Registry.SetClient.
package metricbucket

import (
	"errors"

	"github.com/hairyhenderson/go-pathy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors shared by all instrumented clients.
type Metrics struct {
	ops      *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. When reg is
// nil, prometheus.DefaultRegisterer is used.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		ops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pathy_bucket_ops_total",
				Help: "Total number of bucket client operations",
			},
			[]string{"scheme", "operation"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pathy_bucket_errors_total",
				Help: "Total number of failed bucket client operations, by error kind",
			},
			[]string{"scheme", "operation", "kind"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pathy_bucket_op_duration_seconds",
				Help:    "Bucket client operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"scheme", "operation"},
		),
		bytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pathy_blob_bytes_total",
				Help: "Total number of blob bytes read or written",
			},
			[]string{"scheme", "direction"}, // direction: "read", "write"
		),
	}
}

// errorKind names the kind of a pathy error for the kind label
func errorKind(err error) string {
	switch {
	case errors.Is(err, pathy.ErrNotFound):
		return "not_found"
	case errors.Is(err, pathy.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, pathy.ErrInvalidName):
		return "invalid_name"
	default:
		return "backend"
	}
}
