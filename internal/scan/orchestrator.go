// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scan implements the security-scan workflow: a bounded periodic
// probing loop that persists per-tick device snapshots, marks the run
// completed after the final tick, and hands the final snapshot to the
// recommendation engine.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wanyonyi-dev/risk-analysis-app/internal/datatypes"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/observability"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/probe"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/store"
)

// =============================================================================
// Errors and state
// =============================================================================

// ErrScanActive is returned by Start while a scan is already running. The
// call has no side effects: no permission requests, no ScanRun allocation,
// no state change. Callers that want the original fire-and-forget behavior
// can ignore it.
var ErrScanActive = errors.New("scan: a scan is already running")

// State is the orchestrator's lifecycle state.
type State string

const (
	// StateIdle means no scan is running. The orchestrator starts and
	// finishes every run in this state.
	StateIdle State = "idle"
	// StateScanning means a run is in flight.
	StateScanning State = "scanning"
)

// =============================================================================
// Configuration
// =============================================================================

// Config holds the scan loop parameters.
//
// # Fields
//
//   - TickInterval: How often the loop polls the probe. Default: 2 seconds.
//   - TickCount: Number of ticks in one run. Default: 5.
//   - EventBuffer: Buffer size for event subscriber channels. Default: 16.
type Config struct {
	TickInterval time.Duration
	TickCount    int
	EventBuffer  int
}

// DefaultConfig returns the original workflow parameters: five ticks, two
// seconds apart.
func DefaultConfig() Config {
	return Config{
		TickInterval: 2 * time.Second,
		TickCount:    5,
		EventBuffer:  16,
	}
}

// Recommender receives the final tick's snapshot after a run completes.
type Recommender interface {
	// Apply derives recommendations from snap and persists them in one
	// atomic batch. It returns the derived set, which may be empty.
	Apply(ctx context.Context, snap datatypes.Snapshot) ([]datatypes.Recommendation, error)
}

// =============================================================================
// Orchestrator
// =============================================================================

// Orchestrator drives the scan workflow state machine (Idle <-> Scanning).
//
// # Description
//
// Start allocates a ScanRun and launches a ticker-driven goroutine. Each
// tick queries the probe, merge-writes the snapshot into the ScanRun, and
// appends one activity entry, in that order. The final tick additionally
// writes {status: completed, completion_time} and invokes the Recommender
// with the final snapshot. Any tick error stops the ticker, returns the
// orchestrator to Idle, and leaves the ScanRun in-progress; already-written
// ticks are not rolled back.
//
// # Guarantees
//
//   - At most one run is active at a time (Start returns ErrScanActive).
//   - An error-free run produces exactly TickCount snapshot merge-writes,
//     TickCount activity appends, and one completion write.
//
// # Not guaranteed
//
//   - That every run reaches TickCount ticks: a mid-loop error truncates
//     the sequence and the run stays in-progress forever.
//
// # Thread Safety
//
// All public methods are safe for concurrent use. State transitions are
// mutex-guarded; the tick loop runs on its own goroutine.
type Orchestrator struct {
	store       store.Store
	probe       probe.Probe
	recommender Recommender
	clock       Clock
	cfg         Config
	events      *emitter

	mu       sync.Mutex
	state    State
	runID    string
	done     chan struct{}
	stopOnce func()
}

// New creates an orchestrator in the Idle state.
//
// # Inputs
//
//   - st: Document store for ScanRun and activity writes. Must not be nil.
//   - pr: Device/network probe. Must not be nil.
//   - rec: Recommendation engine invoked on completion. May be nil, in
//     which case completed runs produce no recommendations.
//   - clock: Time source. Nil defaults to the wall clock.
//   - cfg: Loop parameters. Zero values are replaced with defaults.
func New(st store.Store, pr probe.Probe, rec Recommender, clock Clock, cfg Config) *Orchestrator {
	def := DefaultConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.TickCount <= 0 {
		cfg.TickCount = def.TickCount
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = def.EventBuffer
	}
	if clock == nil {
		clock = NewClock()
	}
	return &Orchestrator{
		store:       st,
		probe:       pr,
		recommender: rec,
		clock:       clock,
		cfg:         cfg,
		events:      newEmitter(),
		state:       StateIdle,
	}
}

// State returns the current lifecycle state and the active run ID ("" when
// idle).
func (o *Orchestrator) State() (State, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state, o.runID
}

// Events subscribes to orchestrator lifecycle events. The cancel func
// releases the subscription and closes the channel.
func (o *Orchestrator) Events() (<-chan Event, func()) {
	return o.events.subscribe(o.cfg.EventBuffer)
}

// Start begins a new scan run.
//
// # Description
//
// Transitions Idle -> Scanning, requests the location and storage
// permissions best-effort (denial or failure is logged and ignored),
// allocates the ScanRun record, and launches the tick loop. The run
// continues until the final tick, a tick error, Stop, or ctx cancellation.
//
// # Inputs
//
//   - ctx: Governs the whole run, not just this call. Cancellation revokes
//     the ticker between ticks; an in-flight tick's writes are not rolled
//     back.
//
// # Outputs
//
//   - string: The new run's ID.
//   - error: ErrScanActive if a run is in flight, or the ScanRun
//     allocation error.
func (o *Orchestrator) Start(ctx context.Context) (string, error) {
	o.mu.Lock()
	if o.state == StateScanning {
		o.mu.Unlock()
		return "", ErrScanActive
	}
	o.state = StateScanning
	runID := uuid.New().String()
	o.runID = runID
	done := make(chan struct{})
	o.done = done
	var once sync.Once
	o.stopOnce = func() { once.Do(func() { close(done) }) }
	o.mu.Unlock()

	// Best-effort permission requests. Neither denial nor failure blocks
	// the scan; probing proceeds with degraded data.
	for _, p := range []probe.Permission{probe.PermissionLocation, probe.PermissionStorage} {
		granted, err := o.probe.RequestPermission(ctx, p)
		switch {
		case err != nil:
			slog.Warn("permission request failed", "permission", p, "error", err)
		case !granted:
			slog.Warn("permission denied, scanning with degraded data", "permission", p)
		}
	}

	err := o.store.Set(ctx, store.Path(datatypes.CollectionScans, runID), map[string]any{
		"status":     datatypes.ScanStatusInProgress,
		"started_at": store.ServerTimestamp,
	}, false)
	if err != nil {
		o.toIdle()
		return "", fmt.Errorf("allocate scan run: %w", err)
	}

	slog.Info("scan started",
		"run_id", runID,
		"tick_interval", o.cfg.TickInterval.String(),
		"tick_count", o.cfg.TickCount,
	)
	if m := observability.DefaultMetrics; m != nil {
		m.ScansStarted.Inc()
		m.ActiveScans.Inc()
	}
	o.events.emit(Event{Type: EventStarted, RunID: runID})

	go o.runLoop(ctx, runID, done)
	return runID, nil
}

// Stop cancels the active run, if any. The ticker is revoked; the ScanRun
// stays in-progress. Safe to call when idle and safe to call repeatedly.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	stop := o.stopOnce
	o.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// =============================================================================
// Tick loop
// =============================================================================

// runLoop drives one scan run until completion, error, or cancellation.
func (o *Orchestrator) runLoop(ctx context.Context, runID string, done <-chan struct{}) {
	ticker := o.clock.NewTicker(o.cfg.TickInterval)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			slog.Info("scan cancelled (context)", "run_id", runID, "ticks", tick)
			o.abort(runID, tick, ctx.Err())
			return
		case <-done:
			slog.Info("scan cancelled (stop requested)", "run_id", runID, "ticks", tick)
			o.abort(runID, tick, errors.New("scan stopped"))
			return
		case <-ticker.C():
			tick++
			snap, err := o.doTick(ctx, runID, tick)
			if err != nil {
				slog.Error("scan tick failed", "run_id", runID, "tick", tick, "error", err)
				o.abort(runID, tick, err)
				return
			}
			o.events.emit(Event{Type: EventTick, RunID: runID, Tick: tick, Snapshot: snap})
			if tick >= o.cfg.TickCount {
				ticker.Stop()
				o.complete(ctx, runID, tick, snap)
				return
			}
		}
	}
}

// doTick performs one probe-and-persist cycle. Write order is fixed:
// snapshot merge-write first, activity append second.
func (o *Orchestrator) doTick(ctx context.Context, runID string, tick int) (datatypes.Snapshot, error) {
	start := o.clock.Now()

	info, err := o.probe.DeviceSecurityInfo(ctx)
	if err != nil {
		return datatypes.Snapshot{}, fmt.Errorf("probe device security: %w", err)
	}
	network, err := o.probe.NetworkName(ctx)
	if err != nil {
		return datatypes.Snapshot{}, fmt.Errorf("probe network name: %w", err)
	}

	snap := datatypes.Snapshot{
		DeviceEncrypted: info.Encrypted,
		SDKVersion:      info.SDKVersion,
		SecurityPatch:   info.PatchLevel,
		NetworkName:     network,
	}

	fields := snap.Fields()
	fields["timestamp"] = store.ServerTimestamp
	if err := o.store.Set(ctx, store.Path(datatypes.CollectionScans, runID), fields, true); err != nil {
		return snap, fmt.Errorf("persist tick snapshot: %w", err)
	}

	entry := datatypes.ActivityEntry{
		Title:   "Security scan",
		Type:    datatypes.ActivityTypeScan,
		Details: snap.Fields(),
	}
	fieldsActivity := entry.Fields()
	fieldsActivity["time"] = store.ServerTimestamp
	if _, err := o.store.Add(ctx, datatypes.CollectionActivity, fieldsActivity); err != nil {
		return snap, fmt.Errorf("append scan activity: %w", err)
	}

	if m := observability.DefaultMetrics; m != nil {
		m.TickDurationSeconds.Observe(o.clock.Now().Sub(start).Seconds())
		m.TicksTotal.Inc()
	}
	slog.Debug("scan tick persisted", "run_id", runID, "tick", tick)
	return snap, nil
}

// complete writes the terminal status and runs recommendation derivation.
func (o *Orchestrator) complete(ctx context.Context, runID string, tick int, final datatypes.Snapshot) {
	err := o.store.Set(ctx, store.Path(datatypes.CollectionScans, runID), map[string]any{
		"status":          datatypes.ScanStatusCompleted,
		"completion_time": store.ServerTimestamp,
	}, true)
	if err != nil {
		slog.Error("scan completion write failed", "run_id", runID, "error", err)
		o.abort(runID, tick, fmt.Errorf("completion write: %w", err))
		return
	}

	// Recommendation failures are reported but do not demote the run:
	// the scan itself finished, and the batch is safe to retry later.
	if o.recommender != nil {
		recs, err := o.recommender.Apply(ctx, final)
		if err != nil {
			slog.Error("recommendation derivation failed", "run_id", runID, "error", err)
			if m := observability.DefaultMetrics; m != nil {
				m.ErrorsTotal.WithLabelValues("recommendation").Inc()
			}
		} else {
			slog.Info("recommendations derived", "run_id", runID, "count", len(recs))
		}
	}

	o.toIdle()
	if m := observability.DefaultMetrics; m != nil {
		m.ScansCompleted.Inc()
		m.ActiveScans.Dec()
	}
	slog.Info("scan completed", "run_id", runID, "ticks", tick)
	o.events.emit(Event{Type: EventCompleted, RunID: runID, Tick: tick, Snapshot: final})
}

// abort returns the orchestrator to Idle after a tick error or
// cancellation. The ScanRun keeps its in-progress status.
func (o *Orchestrator) abort(runID string, tick int, cause error) {
	o.toIdle()
	if m := observability.DefaultMetrics; m != nil {
		m.ScansAborted.Inc()
		m.ActiveScans.Dec()
		m.ErrorsTotal.WithLabelValues("tick").Inc()
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	o.events.emit(Event{Type: EventFailed, RunID: runID, Tick: tick, Error: msg})
}

func (o *Orchestrator) toIdle() {
	o.mu.Lock()
	o.state = StateIdle
	o.runID = ""
	o.done = nil
	o.stopOnce = nil
	o.mu.Unlock()
}
