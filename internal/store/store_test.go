// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"testing"
	"time"
)

func TestPathRoundTrip(t *testing.T) {
	path := Path("scans", "run-1")
	if path != "scans/run-1" {
		t.Fatalf("Path = %q, want scans/run-1", path)
	}
	collection, id, err := SplitPath(path)
	if err != nil {
		t.Fatalf("SplitPath failed: %v", err)
	}
	if collection != "scans" || id != "run-1" {
		t.Errorf("SplitPath = (%q, %q), want (scans, run-1)", collection, id)
	}
}

func TestSplitPathKeepsSlashesInID(t *testing.T) {
	// Only the first separator splits; IDs may contain slashes.
	collection, id, err := SplitPath("scans/a/b")
	if err != nil {
		t.Fatalf("SplitPath failed: %v", err)
	}
	if collection != "scans" || id != "a/b" {
		t.Errorf("SplitPath = (%q, %q), want (scans, a/b)", collection, id)
	}
}

func TestSplitPathRejectsMalformed(t *testing.T) {
	for _, path := range []string{"", "noseparator", "/leading", "trailing/"} {
		if _, _, err := SplitPath(path); err == nil {
			t.Errorf("SplitPath(%q) succeeded, want error", path)
		}
	}
}

func TestIsServerTimestamp(t *testing.T) {
	if !IsServerTimestamp(ServerTimestamp) {
		t.Error("IsServerTimestamp(ServerTimestamp) = false")
	}
	for _, v := range []any{nil, "server_timestamp", time.Now(), 0} {
		if IsServerTimestamp(v) {
			t.Errorf("IsServerTimestamp(%v) = true, want false", v)
		}
	}
}
