// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package probe defines the device/network probe consumed by the scan
// orchestrator and provides two implementations: an HTTP client for a
// device-side agent and a static probe for development and tests.
package probe

import "context"

// Permission identifies a runtime permission the scan workflow requests
// before probing. Denial is never fatal; the scan proceeds with whatever
// data remains reachable.
type Permission string

const (
	PermissionLocation Permission = "location"
	PermissionStorage  Permission = "storage"
)

// DeviceSecurityInfo is the point-in-time device security attribute set
// returned by one probe query.
type DeviceSecurityInfo struct {
	Encrypted  bool   `json:"encrypted"`
	SDKVersion int    `json:"sdk_version"`
	PatchLevel string `json:"patch_level"`
}

// Probe is the device/network collaborator queried once per scan tick.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the orchestrator may
// overlap a permission request with an in-flight tick during shutdown.
type Probe interface {
	// RequestPermission asks the device for a runtime permission and
	// reports whether it was granted. Errors indicate the request itself
	// failed, not a denial.
	RequestPermission(ctx context.Context, p Permission) (bool, error)

	// DeviceSecurityInfo returns the device's current security attributes.
	DeviceSecurityInfo(ctx context.Context) (DeviceSecurityInfo, error)

	// NetworkName returns the name of the currently connected network, or
	// "" when no network is connected or the name is unavailable.
	NetworkName(ctx context.Context) (string, error)
}
