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

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient interface allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// AgentProbe queries a device-side agent over HTTP.
//
// # Description
//
// The agent exposes a small REST surface:
//
//	GET  /v1/device/security    -> DeviceSecurityInfo JSON
//	GET  /v1/device/network     -> {"name": "..."} (204 when offline)
//	POST /v1/permissions        -> {"granted": bool}
//
// Per-call timeouts are the caller's responsibility via ctx; AgentProbe
// itself applies none beyond the injected client's transport settings.
type AgentProbe struct {
	BaseURL string
	Client  HTTPClient
}

// NewAgentProbe creates a probe talking to the agent at baseURL.
// A nil client defaults to an http.Client with a 10s timeout.
func NewAgentProbe(baseURL string, client HTTPClient) *AgentProbe {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &AgentProbe{BaseURL: baseURL, Client: client}
}

// RequestPermission posts a permission request to the agent.
func (a *AgentProbe) RequestPermission(ctx context.Context, p Permission) (bool, error) {
	body, err := json.Marshal(map[string]string{"permission": string(p)})
	if err != nil {
		return false, fmt.Errorf("encode permission request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.BaseURL+"/v1/permissions", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build permission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		Granted bool `json:"granted"`
	}
	if err := a.doJSON(req, &resp); err != nil {
		return false, fmt.Errorf("request permission %s: %w", p, err)
	}
	return resp.Granted, nil
}

// DeviceSecurityInfo fetches the device's current security attributes.
func (a *AgentProbe) DeviceSecurityInfo(ctx context.Context) (DeviceSecurityInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.BaseURL+"/v1/device/security", nil)
	if err != nil {
		return DeviceSecurityInfo{}, fmt.Errorf("build security request: %w", err)
	}

	var info DeviceSecurityInfo
	if err := a.doJSON(req, &info); err != nil {
		return DeviceSecurityInfo{}, fmt.Errorf("query device security: %w", err)
	}
	return info, nil
}

// NetworkName fetches the connected network name. Returns "" when the agent
// reports no connected network (HTTP 204).
func (a *AgentProbe) NetworkName(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.BaseURL+"/v1/device/network", nil)
	if err != nil {
		return "", fmt.Errorf("build network request: %w", err)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("query network name: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("query network name: agent returned %d", resp.StatusCode)
	}

	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode network name: %w", err)
	}
	return payload.Name, nil
}

// doJSON executes req and decodes a 200 JSON response into out.
func (a *AgentProbe) doJSON(req *http.Request, out any) error {
	resp, err := a.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("agent returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
