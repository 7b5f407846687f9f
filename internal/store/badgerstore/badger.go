// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badgerstore implements the store.Store contract on an embedded
// BadgerDB. Documents are JSON-encoded field maps keyed "<collection>/<id>",
// so the dashboard runs single-node with no external database process.
package badgerstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Config holds the database settings for one store instance.
//
// # Fields
//
//   - Path: Directory for the database files. Required unless InMemory.
//   - InMemory: Keep everything in RAM; data is lost on Close.
//   - SyncWrites: Fsync every write. On for production, off for tests.
//   - Logger: Receives BadgerDB's internal log lines. Nil silences them.
//   - GCInterval: Value-log GC cadence. Zero disables the GC runner.
//   - GCDiscardRatio: Garbage fraction that triggers a value-log rewrite.
type Config struct {
	Path           string
	InMemory       bool
	SyncWrites     bool
	Logger         *slog.Logger
	GCInterval     time.Duration
	GCDiscardRatio float64
}

// DefaultConfig returns the production settings: durable writes and a
// five-minute GC cycle reclaiming logs that are at least half garbage.
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns the settings used by tests: RAM-only, no fsync,
// no GC runner.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// openDB opens the BadgerDB behind a Config, creating the data directory
// when needed.
func openDB(cfg Config) (*badger.DB, error) {
	var opts badger.Options
	switch {
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case cfg.Path == "":
		return nil, errors.New("badgerstore: Path is required for a persistent store")
	default:
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	// One version per key: documents are whole-value overwrites, history
	// lives in the activity collection instead.
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{l: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", cfg.Path, err)
	}
	return db, nil
}

// badgerLogger bridges BadgerDB's printf-style logger onto slog.
type badgerLogger struct {
	l *slog.Logger
}

func (b *badgerLogger) Errorf(f string, args ...any)   { b.l.Error(fmt.Sprintf(f, args...)) }
func (b *badgerLogger) Warningf(f string, args ...any) { b.l.Warn(fmt.Sprintf(f, args...)) }
func (b *badgerLogger) Infof(f string, args ...any)    { b.l.Info(fmt.Sprintf(f, args...)) }
func (b *badgerLogger) Debugf(f string, args ...any)   { b.l.Debug(fmt.Sprintf(f, args...)) }

// gcRunner reclaims value-log space on a ticker. BadgerDB never runs value
// GC on its own, so long-lived stores leak disk without this.
type gcRunner struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	logger   *slog.Logger
	stop     chan struct{}
	done     chan struct{}
}

func newGCRunner(db *badger.DB, interval time.Duration, ratio float64, logger *slog.Logger) *gcRunner {
	return &gcRunner{
		db:       db,
		interval: interval,
		ratio:    ratio,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (r *gcRunner) Start() { go r.loop() }

// Stop halts the runner and waits for an in-flight GC pass to finish.
func (r *gcRunner) Stop() {
	close(r.stop)
	<-r.done
}

func (r *gcRunner) loop() {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.collect()
		}
	}
}

func (r *gcRunner) collect() {
	// ErrNoRewrite just means nothing met the discard ratio this cycle.
	err := r.db.RunValueLogGC(r.ratio)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		if r.logger != nil {
			r.logger.Warn("value log GC failed", "error", err)
		}
		return
	}
	if err == nil && r.logger != nil {
		r.logger.Debug("value log GC reclaimed space")
	}
}
