// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package auth

import (
	"context"
	"errors"
	"testing"
)

func TestNopProviderAcceptsAnything(t *testing.T) {
	p := &NopAuthProvider{}
	for _, token := range []string{"", "anything", "Bearer junk"} {
		info, err := p.Validate(context.Background(), token)
		if err != nil {
			t.Fatalf("Validate(%q) failed: %v", token, err)
		}
		if info.UserID != "local-user" {
			t.Errorf("Validate(%q) UserID = %q, want local-user", token, info.UserID)
		}
		if !info.HasRole("admin") {
			t.Errorf("Validate(%q) missing admin role", token)
		}
	}
}

func TestStaticTokenProvider(t *testing.T) {
	p := &StaticTokenProvider{Token: "s3cret"}

	info, err := p.Validate(context.Background(), "s3cret")
	if err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if info.UserID != "api-user" {
		t.Errorf("UserID = %q, want api-user", info.UserID)
	}

	for _, token := range []string{"", "wrong", "s3cret "} {
		_, err := p.Validate(context.Background(), token)
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Validate(%q) error = %v, want ErrUnauthorized", token, err)
		}
	}
}

func TestStaticTokenProviderCustomUserID(t *testing.T) {
	p := &StaticTokenProvider{Token: "s3cret", UserID: "ops"}
	info, err := p.Validate(context.Background(), "s3cret")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if info.UserID != "ops" {
		t.Errorf("UserID = %q, want ops", info.UserID)
	}
}

func TestStaticTokenProviderUnconfigured(t *testing.T) {
	p := &StaticTokenProvider{}
	if _, err := p.Validate(context.Background(), ""); err == nil {
		t.Fatal("unconfigured provider validated a request")
	}
}

func TestHasRole(t *testing.T) {
	info := &AuthInfo{UserID: "u", Roles: []string{"viewer"}}
	if !info.HasRole("viewer") {
		t.Error("HasRole(viewer) = false, want true")
	}
	if info.HasRole("admin") {
		t.Error("HasRole(admin) = true, want false")
	}
}
