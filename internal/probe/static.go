// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package probe

import "context"

// StaticProbe returns fixed values on every query. Used when no device
// agent is configured (lightweight mode) and in tests.
type StaticProbe struct {
	Info    DeviceSecurityInfo
	Network string
	// GrantPermissions controls the RequestPermission outcome.
	GrantPermissions bool
}

// DefaultStaticProbe returns a probe describing a healthy, patched device.
func DefaultStaticProbe() *StaticProbe {
	return &StaticProbe{
		Info: DeviceSecurityInfo{
			Encrypted:  true,
			SDKVersion: 34,
			PatchLevel: "2025-06-01",
		},
		Network:          "local",
		GrantPermissions: true,
	}
}

func (s *StaticProbe) RequestPermission(_ context.Context, _ Permission) (bool, error) {
	return s.GrantPermissions, nil
}

func (s *StaticProbe) DeviceSecurityInfo(_ context.Context) (DeviceSecurityInfo, error) {
	return s.Info, nil
}

func (s *StaticProbe) NetworkName(_ context.Context) (string, error) {
	return s.Network, nil
}
