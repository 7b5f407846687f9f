// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package auth defines the identity-provider contract consumed by the API
// middleware, plus the two bundled providers: a no-op provider for local
// single-user deployments and a static-token provider for small installs
// that want a shared secret without an external identity service.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
)

// ErrUnauthorized is returned (possibly wrapped) when a token fails
// validation.
var ErrUnauthorized = errors.New("auth: unauthorized")

// AuthInfo is the validated identity attached to a request.
type AuthInfo struct {
	// UserID is the unique identifier for the authenticated user.
	// This is the only required field and must never be empty.
	UserID string

	// Email is the user's email address.
	// May be empty if not provided by the auth provider.
	Email string

	// Roles contains the user's role memberships for authorization
	// decisions. Common roles: "admin", "viewer".
	Roles []string
}

// HasRole checks if the user has a specific role.
func (a *AuthInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider validates authentication tokens and returns user identity.
//
// Implementations must be safe for concurrent use. Hosted deployments
// implement this against a real identity provider; the bundled providers
// cover local and shared-secret setups.
type AuthProvider interface {
	// Validate checks the token and returns the user's identity, or
	// ErrUnauthorized (possibly wrapped) when the token is invalid.
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider authenticates every request as a local admin user.
//
// The token is ignored; any value (including empty) validates. This is
// intentional for local single-user deployments with no authentication
// infrastructure.
type NopAuthProvider struct{}

// Validate always returns a valid local user with admin privileges.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{
		UserID: "local-user",
		Roles:  []string{"admin"},
	}, nil
}

// StaticTokenProvider validates against one pre-shared token.
type StaticTokenProvider struct {
	// Token is the expected bearer token. Must be non-empty.
	Token string
	// UserID reported for valid requests. Defaults to "api-user".
	UserID string
}

// Validate compares the presented token against the configured one in
// constant time.
func (p *StaticTokenProvider) Validate(_ context.Context, token string) (*AuthInfo, error) {
	if p.Token == "" {
		return nil, errors.New("auth: static provider has no token configured")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(p.Token)) != 1 {
		return nil, ErrUnauthorized
	}
	userID := p.UserID
	if userID == "" {
		userID = "api-user"
	}
	return &AuthInfo{
		UserID: userID,
		Roles:  []string{"admin"},
	}, nil
}

// Compile-time interface compliance checks.
var (
	_ AuthProvider = (*NopAuthProvider)(nil)
	_ AuthProvider = (*StaticTokenProvider)(nil)
)
