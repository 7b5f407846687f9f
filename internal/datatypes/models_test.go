// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"testing"
	"time"
)

func TestScanRunFromFields(t *testing.T) {
	started := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	completed := started.Add(10 * time.Second)

	fields := map[string]any{
		"status":           ScanStatusCompleted,
		"started_at":       started.Format(time.RFC3339Nano),
		"completion_time":  completed.Format(time.RFC3339Nano),
		"device_encrypted": true,
		"sdk_version":      float64(34),
		"security_patch":   "2025-10-01",
		"network_name":     "office-wifi",
	}

	run, err := ScanRunFromFields("run1", fields)
	if err != nil {
		t.Fatalf("ScanRunFromFields: %v", err)
	}
	if run.ID != "run1" {
		t.Errorf("ID = %q, want run1", run.ID)
	}
	if run.Status != ScanStatusCompleted {
		t.Errorf("Status = %q, want %s", run.Status, ScanStatusCompleted)
	}
	if !run.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", run.StartedAt, started)
	}
	if !run.CompletionTime.Equal(completed) {
		t.Errorf("CompletionTime = %v, want %v", run.CompletionTime, completed)
	}
	if !run.DeviceEncrypted {
		t.Error("DeviceEncrypted = false, want true")
	}
	if run.SDKVersion != 34 {
		t.Errorf("SDKVersion = %d, want 34", run.SDKVersion)
	}
	if run.SecurityPatch != "2025-10-01" {
		t.Errorf("SecurityPatch = %q, want 2025-10-01", run.SecurityPatch)
	}
	if run.NetworkName != "office-wifi" {
		t.Errorf("NetworkName = %q, want office-wifi", run.NetworkName)
	}
}

func TestScanRunFromFieldsRejectsBadTimestamp(t *testing.T) {
	_, err := ScanRunFromFields("run1", map[string]any{
		"status":     ScanStatusInProgress,
		"started_at": "not-a-timestamp",
	})
	if err == nil {
		t.Fatal("expected decode error for malformed timestamp")
	}
}
