// Package metrics holds the Prometheus collectors for the link subsystem.
// Collectors register on the default registry, served at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons an anchor was deleted.
const (
	ReasonExplicit = "explicit"
	ReasonOrphaned = "orphaned"
	ReasonNode     = "node_deleted"
)

var (
	AnchorsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anchorage_anchors_created_total",
		Help: "Anchors persisted.",
	})

	AnchorsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anchorage_anchors_deleted_total",
		Help: "Anchors deleted, by reason.",
	}, []string{"reason"})

	LinksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anchorage_links_created_total",
		Help: "Links persisted.",
	})

	LinksDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anchorage_links_deleted_total",
		Help: "Links deleted.",
	})

	// LinkingTransitions counts linking state machine transitions
	// (start, complete, cancel, refused, failed, stale).
	LinkingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anchorage_linking_transitions_total",
		Help: "Linking state machine transitions.",
	}, []string{"transition"})

	GraphBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "anchorage_graph_build_duration_seconds",
		Help:    "Link-graph build latency.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
)

// ObserveSince records the elapsed time since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
