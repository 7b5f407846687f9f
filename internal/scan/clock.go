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

import "time"

// =============================================================================
// Clock abstraction
// =============================================================================

// Clock supplies wall-clock time and tickers to the orchestrator. The
// production implementation wraps the time package; tests substitute a
// manual clock to drive ticks deterministically.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// NewTicker returns a ticker firing every d.
	NewTicker(d time.Duration) Ticker
}

// Ticker is the subset of time.Ticker the scan loop needs.
type Ticker interface {
	// C returns the tick channel.
	C() <-chan time.Time

	// Stop revokes the ticker. No more ticks are delivered after Stop
	// returns, though one may already be buffered in C.
	Stop()
}

// realClock implements Clock on the time package.
type realClock struct{}

// NewClock returns the production wall-clock implementation.
func NewClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }
