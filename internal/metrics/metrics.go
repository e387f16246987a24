// Package metrics defines the Prometheus collectors served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts requests by method, chi route pattern, and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ansuz",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route pattern, and status code.",
	}, []string{"method", "route", "status"})

	// HTTPDuration tracks request latency by method and route pattern.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ansuz",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// Queries counts query executions, successful or not.
	Queries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ansuz",
		Subsystem: "query",
		Name:      "total",
		Help:      "Query executions.",
	})

	// QueryErrors counts queries rejected at parse time or failed during setup.
	QueryErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ansuz",
		Subsystem: "query",
		Name:      "errors_total",
		Help:      "Queries that failed to parse or run.",
	})

	// QueryDuration tracks end-to-end query latency including snapshot reuse.
	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ansuz",
		Subsystem: "query",
		Name:      "duration_seconds",
		Help:      "Query execution latency.",
		Buckets:   prometheus.DefBuckets,
	})

	// SnapshotBuilds counts snapshot rebuilds triggered by index changes.
	SnapshotBuilds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ansuz",
		Subsystem: "query",
		Name:      "snapshot_builds_total",
		Help:      "Query snapshot rebuilds.",
	})

	// IndexNotes reports the number of notes in the current snapshot.
	IndexNotes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ansuz",
		Subsystem: "index",
		Name:      "notes",
		Help:      "Notes in the current query snapshot.",
	})

	// SyncRuns counts full sync passes by outcome.
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ansuz",
		Subsystem: "index",
		Name:      "sync_total",
		Help:      "Full sync passes by outcome.",
	}, []string{"outcome"})

	// SyncDuration tracks how long full sync passes take.
	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ansuz",
		Subsystem: "index",
		Name:      "sync_duration_seconds",
		Help:      "Full sync pass duration.",
		Buckets:   prometheus.DefBuckets,
	})

	// SSEClients reports currently connected event stream clients.
	SSEClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ansuz",
		Subsystem: "sse",
		Name:      "clients",
		Help:      "Connected SSE clients.",
	})
)
