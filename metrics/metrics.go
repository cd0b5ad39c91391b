// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics collects Prometheus metrics about scans and exports
// them in the text format for the node_exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rbmk-project/sctpscan/scanner"
)

const (
	// namespace for all the metrics
	namespace = "sctpscan"

	// subsystems
	subsystemScan = "scan"
	subsystemPing = "ping"
)

// Metrics holds the Prometheus collectors for a scan.
//
// Construct using [New].
type Metrics struct {
	attempts       *prometheus.CounterVec
	connectLatency *prometheus.HistogramVec
	duration       prometheus.Gauge
	openPorts      prometheus.Gauge
	peakInFlight   prometheus.Gauge
	probes         *prometheus.CounterVec
	registry       *prometheus.Registry
	transport      string
}

// New creates a new [*Metrics] for scans using the given transport.
func New(transport string) *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		transport: transport,
	}

	m.attempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "attempts_total",
			Help:      "Total number of resolved connection attempts by outcome",
		},
		[]string{"protocol", "outcome"},
	)

	m.connectLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "connect_duration_seconds",
			Help:      "Time elapsed between issuing a connect and resolving it",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"protocol", "outcome"},
	)

	m.duration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystemScan,
		Name:      "duration_seconds",
		Help:      "Duration of the last scan in seconds",
	})

	m.openPorts = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystemScan,
		Name:      "open_ports",
		Help:      "Number of open ports found by the last scan",
	})

	m.peakInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystemScan,
		Name:      "peak_in_flight",
		Help:      "Maximum number of simultaneously outstanding connects",
	})

	m.probes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemPing,
			Name:      "hosts_total",
			Help:      "Total number of pinged hosts by status",
		},
		[]string{"status"},
	)

	m.registry.MustRegister(
		m.attempts,
		m.connectLatency,
		m.duration,
		m.openPorts,
		m.peakInFlight,
		m.probes,
	)
	return m
}

// Registry returns the underlying [*prometheus.Registry].
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveResolution records a resolved attempt. It is suitable
// for use as the [*scanner.Scanner] OnResolve callback.
func (m *Metrics) ObserveResolution(res scanner.Resolution) {
	outcome := res.Outcome.String()
	m.attempts.WithLabelValues(m.transport, outcome).Inc()
	if res.Outcome != scanner.OutcomeAdmissionFailed {
		m.connectLatency.WithLabelValues(m.transport, outcome).Observe(res.Elapsed.Seconds())
	}
}

// ObserveProbe records the result of pinging a host.
func (m *Metrics) ObserveProbe(alive bool) {
	status := "down"
	if alive {
		status = "alive"
	}
	m.probes.WithLabelValues(status).Inc()
}

// ObserveScan records the summary of a completed scan.
func (m *Metrics) ObserveScan(result *scanner.Result, elapsed time.Duration) {
	m.duration.Set(elapsed.Seconds())
	m.openPorts.Set(float64(result.Stats.Open))
	m.peakInFlight.Set(float64(result.Stats.PeakInFlight))
}

// WriteToTextfile atomically writes the metrics to path in the
// Prometheus text format.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
