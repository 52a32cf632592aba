// Package metrics holds the agent's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollCycles counts completed poll cycles by result.
	PollCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warningd_poll_cycles_total",
		Help: "Completed poll cycles by result (success, failure).",
	}, []string{"result"})

	// SkippedTicks counts scheduler ticks dropped because a cycle was
	// already in flight.
	SkippedTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warningd_skipped_ticks_total",
		Help: "Scheduler ticks dropped because a poll cycle was in flight.",
	})

	// CycleDuration observes how long one poll cycle takes.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "warningd_cycle_duration_seconds",
		Help:    "Duration of one poll cycle.",
		Buckets: prometheus.DefBuckets,
	})

	// ActiveWarnings tracks the size of the current warning set.
	ActiveWarnings = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warningd_active_warnings",
		Help: "Number of warnings in the active set.",
	})

	// NotificationsCreated counts notifications surfaced to the user.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warningd_notifications_total",
		Help: "Notifications surfaced to the user by kind (warning, error).",
	}, []string{"kind"})
)
