package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	childLaunches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shepherd",
			Subsystem: "supervisor",
			Name:      "launches_total",
			Help:      "Number of child launch attempts by result.",
		}, []string{"result"},
	)
	toggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shepherd",
			Subsystem: "state",
			Name:      "toggles_total",
			Help:      "Number of enable-flag transitions by child and new value.",
		}, []string{"name", "to"},
	)
	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shepherd",
			Subsystem: "notify",
			Name:      "entries_total",
			Help:      "Number of notification entries recorded by level.",
		}, []string{"level"},
	)
	shutdownOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shepherd",
			Subsystem: "supervisor",
			Name:      "shutdown_outcomes_total",
			Help:      "Child shutdown outcomes (graceful or forced).",
		}, []string{"outcome"},
	)
	trackedHandles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "shepherd",
			Subsystem: "supervisor",
			Name:      "tracked_handles",
			Help:      "Number of child process handles currently tracked.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{childLaunches, toggles, notifications, shutdownOutcomes, trackedHandles}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving Prometheus metrics for the
// DefaultGatherer. The caller wires the route and server.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncLaunch(result string) {
	if regOK.Load() {
		childLaunches.WithLabelValues(result).Inc()
	}
}

func IncToggle(name string, enabled bool) {
	if regOK.Load() {
		to := "disabled"
		if enabled {
			to = "enabled"
		}
		toggles.WithLabelValues(name, to).Inc()
	}
}

func IncNotification(level string) {
	if regOK.Load() {
		notifications.WithLabelValues(level).Inc()
	}
}

func IncShutdownOutcome(outcome string) {
	if regOK.Load() {
		shutdownOutcomes.WithLabelValues(outcome).Inc()
	}
}

func SetTrackedHandles(n int) {
	if regOK.Load() {
		trackedHandles.Set(float64(n))
	}
}
