// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the document shapes persisted by the
// risk-analysis service: security metrics, threats, scan runs, activity
// entries, and recommendations.
//
// Every type maps onto a flat field map stored in a document collection.
// Enum-like attributes (levels, priorities, document types) are string
// constants rather than iota enums so the persisted form stays readable
// and forward-compatible with externally-written documents.
package datatypes

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// Collections
// =============================================================================

// Collection names used across the service. The store addresses documents
// as "<collection>/<id>".
const (
	CollectionMetrics         = "metrics"
	CollectionThreats         = "threats"
	CollectionScans           = "scans"
	CollectionActivity        = "activity"
	CollectionRecommendations = "recommendations"
)

// MetricsDocID is the fixed document ID of the SecurityMetrics singleton.
const MetricsDocID = "current"

// =============================================================================
// Severity / priority levels
// =============================================================================

// Severity levels shared by threats and recommendations.
const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

// Threat categories.
const (
	ThreatTypeApplication = "application"
	ThreatTypeNetwork     = "network"
)

// Activity entry types.
const (
	ActivityTypeScan   = "scan"
	ActivityTypeThreat = "threat"
	ActivityTypeUpdate = "update"
)

// Recommendation types.
const (
	RecommendationTypeSystemUpdate = "system_update"
	RecommendationTypeEncryption   = "encryption"
)

// Scan run status values. A run moves from in-progress to completed exactly
// once; an aborted run stays in-progress.
const (
	ScanStatusInProgress = "in-progress"
	ScanStatusCompleted  = "completed"
)

// =============================================================================
// Documents
// =============================================================================

// SecurityMetrics is the singleton aggregate score document shown on the
// dashboard. SecureScore and RiskScore are both 0-100 and are not required
// to sum to 100; they are seeded once and only change when written
// externally. The service does not derive them from scan results.
type SecurityMetrics struct {
	SecureScore float64   `json:"secure_score"`
	RiskScore   float64   `json:"risk_score"`
	LastUpdated time.Time `json:"last_updated"`
}

// Threat is a named risk category rendered in the dashboard threat list.
// Threats are seeded with fixed defaults and otherwise externally managed;
// the scan workflow only reads them.
type Threat struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	Level string `json:"level"`
	Type  string `json:"type"`
}

// Snapshot is the set of device/network attributes collected in a single
// scan tick.
type Snapshot struct {
	DeviceEncrypted bool   `json:"device_encrypted"`
	SDKVersion      int    `json:"sdk_version"`
	SecurityPatch   string `json:"security_patch"`
	NetworkName     string `json:"network_name"`
}

// Fields returns the snapshot as a document field map, the form merged into
// a ScanRun on every tick.
func (s Snapshot) Fields() map[string]any {
	return map[string]any{
		"device_encrypted": s.DeviceEncrypted,
		"sdk_version":      s.SDKVersion,
		"security_patch":   s.SecurityPatch,
		"network_name":     s.NetworkName,
	}
}

// ScanRun is one invocation of the scan workflow. The document accumulates
// one merged snapshot per tick plus a completion write; it is never deleted.
// The embedded Snapshot is flattened so the struct matches the stored field
// layout (snapshot attributes live at the top level of the document).
type ScanRun struct {
	ID string `json:"id,omitempty"`
	Snapshot
	Status         string    `json:"status"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	Timestamp      time.Time `json:"timestamp,omitempty"`
	CompletionTime time.Time `json:"completion_time,omitempty"`
}

// ScanRunFromFields decodes a stored scan document into a ScanRun.
func ScanRunFromFields(id string, fields map[string]any) (ScanRun, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return ScanRun{}, fmt.Errorf("encode scan run %s: %w", id, err)
	}
	var run ScanRun
	if err := json.Unmarshal(raw, &run); err != nil {
		return ScanRun{}, fmt.Errorf("decode scan run %s: %w", id, err)
	}
	run.ID = id
	return run, nil
}

// ActivityEntry is an append-only audit log line. Details carries an opaque
// snapshot of whatever the entry describes (for scan entries, the tick's
// Snapshot fields). Retention is an external concern.
type ActivityEntry struct {
	ID      string         `json:"id,omitempty"`
	Title   string         `json:"title"`
	Time    time.Time      `json:"time"`
	Type    string         `json:"type"`
	Details map[string]any `json:"details,omitempty"`
}

// Recommendation is an actionable suggestion derived from a completed scan
// (or seeded as a default). Recommendations are appended, never deduplicated:
// re-running a scan with the same findings produces duplicates.
type Recommendation struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
}

// Fields returns the recommendation as a document field map.
func (r Recommendation) Fields() map[string]any {
	return map[string]any{
		"title":       r.Title,
		"description": r.Description,
		"priority":    r.Priority,
		"type":        r.Type,
		"timestamp":   r.Timestamp,
	}
}

// Fields returns the threat as a document field map.
func (t Threat) Fields() map[string]any {
	return map[string]any{
		"title": t.Title,
		"level": t.Level,
		"type":  t.Type,
	}
}

// Fields returns the metrics singleton as a document field map.
func (m SecurityMetrics) Fields() map[string]any {
	return map[string]any{
		"secure_score": m.SecureScore,
		"risk_score":   m.RiskScore,
		"last_updated": m.LastUpdated,
	}
}

// Fields returns the activity entry as a document field map.
func (a ActivityEntry) Fields() map[string]any {
	f := map[string]any{
		"title": a.Title,
		"time":  a.Time,
		"type":  a.Type,
	}
	if a.Details != nil {
		f["details"] = a.Details
	}
	return f
}
