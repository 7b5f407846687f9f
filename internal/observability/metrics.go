// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the scan workflow.
//
// # Description
//
// Metrics cover scan lifecycle (started/completed/aborted), per-tick probe
// latency, live stream clients, and error counts by stage. Exposed via the
// /metrics endpoint; use with Prometheus + Grafana for dashboards and
// alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics.
const metricsNamespace = "riskanalysis"

// Subsystem for scan workflow metrics.
const scanSubsystem = "scan"

// ScanMetrics holds all Prometheus metrics for the scan workflow.
//
// # Fields
//
//   - ScansStarted/ScansCompleted/ScansAborted: Run lifecycle counters.
//   - ActiveScans: Gauge of in-flight runs (0 or 1 per orchestrator).
//   - TicksTotal: Counter of persisted ticks.
//   - TickDurationSeconds: Histogram of probe+persist latency per tick.
//   - ErrorsTotal: Counter of errors by stage (tick, recommendation, seed).
//   - StreamClients: Gauge of connected WebSocket subscribers.
type ScanMetrics struct {
	ScansStarted        prometheus.Counter
	ScansCompleted      prometheus.Counter
	ScansAborted        prometheus.Counter
	ActiveScans         prometheus.Gauge
	TicksTotal          prometheus.Counter
	TickDurationSeconds prometheus.Histogram
	ErrorsTotal         *prometheus.CounterVec
	StreamClients       prometheus.Gauge
}

// DefaultMetrics is the singleton instance of ScanMetrics.
// Initialized by InitMetrics(); nil until then, and every call site
// nil-checks so library use without metrics stays valid.
var DefaultMetrics *ScanMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Call once at application
// startup; a second call panics on duplicate registration.
//
// # Outputs
//
//   - *ScanMetrics: The initialized metrics instance.
func InitMetrics() *ScanMetrics {
	DefaultMetrics = &ScanMetrics{
		ScansStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: scanSubsystem,
			Name:      "runs_started_total",
			Help:      "Number of scan runs started.",
		}),
		ScansCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: scanSubsystem,
			Name:      "runs_completed_total",
			Help:      "Number of scan runs that reached the terminal tick.",
		}),
		ScansAborted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: scanSubsystem,
			Name:      "runs_aborted_total",
			Help:      "Number of scan runs aborted by error or cancellation.",
		}),
		ActiveScans: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: scanSubsystem,
			Name:      "runs_active",
			Help:      "Number of scan runs currently in flight.",
		}),
		TicksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: scanSubsystem,
			Name:      "ticks_total",
			Help:      "Number of scan ticks persisted.",
		}),
		TickDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: scanSubsystem,
			Name:      "tick_duration_seconds",
			Help:      "Probe-and-persist latency of one scan tick.",
			Buckets:   prometheus.DefBuckets,
		}),
		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: scanSubsystem,
			Name:      "errors_total",
			Help:      "Errors by workflow stage.",
		}, []string{"stage"}),
		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: scanSubsystem,
			Name:      "stream_clients",
			Help:      "Connected WebSocket change-feed clients.",
		}),
	}
	return DefaultMetrics
}
