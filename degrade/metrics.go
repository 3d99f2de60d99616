package degrade

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	probeResultSuccess = "success"
	probeResultFailure = "failure"
)

var (
	monitorLabels = []string{
		"name",
	}

	metricMonitorAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "availabletrade_monitor_available",
		Help: "Whether the monitored dependency is reported as available (1) or degraded (0).",
	}, monitorLabels)

	metricMonitorConsecutiveFailures = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "availabletrade_monitor_consecutive_failures",
		Help: "The number of consecutive failed probes since the last success.",
	}, monitorLabels)

	metricMonitorProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "availabletrade_monitor_probes_total",
		Help: "The number of probes applied, by result.",
	}, append(monitorLabels, "result"))

	metricMonitorProbeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "availabletrade_monitor_probe_duration_seconds",
		Help:    "The duration of availability probes.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, monitorLabels)

	metricMonitorSkippedTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "availabletrade_monitor_skipped_ticks_total",
		Help: "The number of ticks skipped because the previous probe was still in flight.",
	}, monitorLabels)

	metricMonitorTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "availabletrade_monitor_transitions_total",
		Help: "The number of status transitions, by target status.",
	}, append(monitorLabels, "to"))
)

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
