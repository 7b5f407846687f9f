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
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

// mockHTTPClient routes requests by path, serving canned responses.
type mockHTTPClient struct {
	responses map[string]*http.Response
	requests  []*http.Request
	err       error
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if resp, ok := m.responses[req.URL.Path]; ok {
		return resp, nil
	}
	return jsonResponse(http.StatusNotFound, `{}`), nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestAgentDeviceSecurityInfo(t *testing.T) {
	client := &mockHTTPClient{responses: map[string]*http.Response{
		"/v1/device/security": jsonResponse(http.StatusOK,
			`{"encrypted": true, "sdk_version": 34, "patch_level": "2025-06-01"}`),
	}}
	p := NewAgentProbe("http://agent.local", client)

	info, err := p.DeviceSecurityInfo(context.Background())
	if err != nil {
		t.Fatalf("DeviceSecurityInfo failed: %v", err)
	}
	if !info.Encrypted || info.SDKVersion != 34 || info.PatchLevel != "2025-06-01" {
		t.Errorf("info = %+v, want encrypted sdk 34 patch 2025-06-01", info)
	}
}

func TestAgentDeviceSecurityInfoServerError(t *testing.T) {
	client := &mockHTTPClient{responses: map[string]*http.Response{
		"/v1/device/security": jsonResponse(http.StatusInternalServerError, `{}`),
	}}
	p := NewAgentProbe("http://agent.local", client)

	if _, err := p.DeviceSecurityInfo(context.Background()); err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}

func TestAgentNetworkName(t *testing.T) {
	client := &mockHTTPClient{responses: map[string]*http.Response{
		"/v1/device/network": jsonResponse(http.StatusOK, `{"name": "HomeWiFi"}`),
	}}
	p := NewAgentProbe("http://agent.local", client)

	name, err := p.NetworkName(context.Background())
	if err != nil {
		t.Fatalf("NetworkName failed: %v", err)
	}
	if name != "HomeWiFi" {
		t.Errorf("name = %q, want HomeWiFi", name)
	}
}

func TestAgentNetworkNameOffline(t *testing.T) {
	client := &mockHTTPClient{responses: map[string]*http.Response{
		"/v1/device/network": jsonResponse(http.StatusNoContent, ``),
	}}
	p := NewAgentProbe("http://agent.local", client)

	name, err := p.NetworkName(context.Background())
	if err != nil {
		t.Fatalf("NetworkName failed: %v", err)
	}
	if name != "" {
		t.Errorf("offline network name = %q, want empty", name)
	}
}

func TestAgentRequestPermission(t *testing.T) {
	client := &mockHTTPClient{responses: map[string]*http.Response{
		"/v1/permissions": jsonResponse(http.StatusOK, `{"granted": true}`),
	}}
	p := NewAgentProbe("http://agent.local", client)

	granted, err := p.RequestPermission(context.Background(), PermissionLocation)
	if err != nil {
		t.Fatalf("RequestPermission failed: %v", err)
	}
	if !granted {
		t.Error("granted = false, want true")
	}

	// The request body must carry the permission name.
	if len(client.requests) != 1 {
		t.Fatalf("client saw %d requests, want 1", len(client.requests))
	}
	req := client.requests[0]
	if req.Method != http.MethodPost {
		t.Errorf("method = %s, want POST", req.Method)
	}
	var body map[string]string
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	if body["permission"] != string(PermissionLocation) {
		t.Errorf("permission = %q, want %q", body["permission"], PermissionLocation)
	}
}

func TestStaticProbe(t *testing.T) {
	p := DefaultStaticProbe()
	ctx := context.Background()

	granted, err := p.RequestPermission(ctx, PermissionStorage)
	if err != nil || !granted {
		t.Errorf("RequestPermission = (%v, %v), want (true, nil)", granted, err)
	}
	info, err := p.DeviceSecurityInfo(ctx)
	if err != nil {
		t.Fatalf("DeviceSecurityInfo failed: %v", err)
	}
	if info.SDKVersion == 0 {
		t.Error("static probe reports zero SDK version")
	}
}
