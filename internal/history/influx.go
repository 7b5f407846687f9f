// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history mirrors scan snapshots into InfluxDB so dashboards can
// chart device posture over time. Entirely optional: the sink is only
// wired when INFLUXDB_URL is configured, and write failures never affect
// a scan run.
package history

import (
	"context"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/wanyonyi-dev/risk-analysis-app/internal/datatypes"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/scan"
)

// Sink writes scan history points to InfluxDB.
type Sink struct {
	writeAPI api.WriteAPIBlocking
	close    func()
}

// Config holds InfluxDB connection settings.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// New connects a sink to InfluxDB. The client is lazy; connection errors
// surface on first write.
func New(cfg Config) *Sink {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Sink{
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		close:    client.Close,
	}
}

// NewWithWriteAPI creates a sink over an existing write API. Used in tests.
func NewWithWriteAPI(w api.WriteAPIBlocking) *Sink {
	return &Sink{writeAPI: w, close: func() {}}
}

// Close releases the underlying client.
func (s *Sink) Close() { s.close() }

// Run consumes orchestrator events until the channel closes or ctx is
// cancelled, mirroring each tick snapshot into InfluxDB and marking run
// completion. Intended to run on its own goroutine; errors are logged,
// never propagated.
func (s *Sink) Run(ctx context.Context, events <-chan scan.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			var err error
			switch ev.Type {
			case scan.EventTick:
				err = s.WriteSnapshot(ctx, ev.RunID, ev.Tick, ev.Snapshot)
			case scan.EventCompleted:
				// The last tick already carried the final snapshot, so
				// completion only gets a marker point.
				err = s.WriteCompletion(ctx, ev.RunID, ev.Tick)
			default:
				continue
			}
			if err != nil {
				slog.Warn("history sink write failed", "run_id", ev.RunID, "error", err)
			}
		}
	}
}

// WriteSnapshot records one tick snapshot as a time-series point.
func (s *Sink) WriteSnapshot(ctx context.Context, runID string, tick int, snap datatypes.Snapshot) error {
	p := write.NewPoint(
		"scan_snapshot",
		map[string]string{"run_id": runID},
		map[string]any{
			"tick":             tick,
			"device_encrypted": snap.DeviceEncrypted,
			"sdk_version":      snap.SDKVersion,
			"security_patch":   snap.SecurityPatch,
			"network_name":     snap.NetworkName,
		},
		time.Now(),
	)
	return s.writeAPI.WritePoint(ctx, p)
}

// WriteCompletion records a run-finished marker. Kept as its own
// measurement so snapshot series hold exactly one point per tick.
func (s *Sink) WriteCompletion(ctx context.Context, runID string, ticks int) error {
	p := write.NewPoint(
		"scan_completed",
		map[string]string{"run_id": runID},
		map[string]any{"ticks": ticks},
		time.Now(),
	)
	return s.writeAPI.WritePoint(ctx, p)
}

// WriteScore records the dashboard score pair, called when the metrics
// singleton is seeded or externally updated.
func (s *Sink) WriteScore(ctx context.Context, secure, risk float64) error {
	p := write.NewPoint(
		"security_score",
		nil,
		map[string]any{
			"secure_score": secure,
			"risk_score":   risk,
		},
		time.Now(),
	)
	return s.writeAPI.WritePoint(ctx, p)
}
