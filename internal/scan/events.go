// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scan

import (
	"sync"

	"github.com/wanyonyi-dev/risk-analysis-app/internal/datatypes"
)

// =============================================================================
// Orchestrator events
// =============================================================================

// EventType labels one orchestrator lifecycle event.
type EventType string

const (
	// EventStarted fires once when a scan run is allocated.
	EventStarted EventType = "started"
	// EventTick fires after each tick's snapshot and activity writes settle.
	EventTick EventType = "tick"
	// EventCompleted fires after the completion write on the terminal tick.
	EventCompleted EventType = "completed"
	// EventFailed fires when a tick error aborts the run. The ScanRun is
	// left in-progress; only the orchestrator returns to idle.
	EventFailed EventType = "failed"
)

// Event is one push notification from the orchestrator. UI layers consume
// these instead of reading orchestrator state directly.
type Event struct {
	Type     EventType          `json:"type"`
	RunID    string             `json:"run_id"`
	Tick     int                `json:"tick,omitempty"`
	Snapshot datatypes.Snapshot `json:"snapshot,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// emitter fans orchestrator events out to subscribers. Same drop-don't-block
// policy as the store's change feed.
type emitter struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

func newEmitter() *emitter {
	return &emitter{subs: make(map[int]chan Event)}
}

func (e *emitter) subscribe(buffer int) (<-chan Event, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan Event, buffer)
	id := e.nextID
	e.nextID++
	e.subs[id] = ch

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if c, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
