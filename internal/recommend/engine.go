// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package recommend derives follow-up recommendations from the final
// snapshot of a completed scan and persists them atomically.
package recommend

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/wanyonyi-dev/risk-analysis-app/internal/datatypes"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/store"
)

//go:embed rules.yaml
var rulesYAML []byte

// ruleText is the fixed wording of one recommendation rule.
type ruleText struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Priority    string `yaml:"priority"`
}

// rulesFile mirrors the embedded rules.yaml layout.
type rulesFile struct {
	MinSDKVersion int      `yaml:"min_sdk_version"`
	SystemUpdate  ruleText `yaml:"system_update"`
	Encryption    ruleText `yaml:"encryption"`
}

// Engine holds the compiled rule set and the store recommendations are
// appended to.
//
// The rule set is deliberately small and closed: an outdated SDK and a
// missing encryption flag are the only conditions, so Derive emits zero,
// one, or two recommendations and nothing else. Derivation reads only the
// snapshot; it never consults prior recommendations, so repeated scans
// produce duplicate entries by design of the workflow.
type Engine struct {
	st    store.Store
	rules rulesFile
}

// NewEngine initializes an engine from the embedded rules file.
//
// Returns an error if the embedded YAML is malformed or the rule wording
// is incomplete. st may be nil for a derive-only engine (Apply will fail).
func NewEngine(st store.Store) (*Engine, error) {
	var rules rulesFile
	if err := yaml.Unmarshal(rulesYAML, &rules); err != nil {
		return nil, fmt.Errorf("unmarshal embedded rules file: %w", err)
	}
	if rules.MinSDKVersion <= 0 {
		return nil, fmt.Errorf("rules file: min_sdk_version must be positive, got %d", rules.MinSDKVersion)
	}
	for name, r := range map[string]ruleText{
		"system_update": rules.SystemUpdate,
		"encryption":    rules.Encryption,
	} {
		if r.Title == "" || r.Description == "" || r.Priority == "" {
			return nil, fmt.Errorf("rules file: rule %s is missing title, description, or priority", name)
		}
	}
	return &Engine{st: st, rules: rules}, nil
}

// Derive computes the recommendations for one snapshot. Pure: no I/O, no
// dependence on engine state beyond the compiled rules.
func (e *Engine) Derive(snap datatypes.Snapshot) []datatypes.Recommendation {
	var recs []datatypes.Recommendation
	if snap.SDKVersion < e.rules.MinSDKVersion {
		recs = append(recs, datatypes.Recommendation{
			Title:       e.rules.SystemUpdate.Title,
			Description: e.rules.SystemUpdate.Description,
			Priority:    e.rules.SystemUpdate.Priority,
			Type:        datatypes.RecommendationTypeSystemUpdate,
		})
	}
	if !snap.DeviceEncrypted {
		recs = append(recs, datatypes.Recommendation{
			Title:       e.rules.Encryption.Title,
			Description: e.rules.Encryption.Description,
			Priority:    e.rules.Encryption.Priority,
			Type:        datatypes.RecommendationTypeEncryption,
		})
	}
	return recs
}

// Apply derives recommendations from snap and appends them to the
// recommendations collection in one atomic batch: either every derived
// entry is persisted or none are. An empty derivation commits nothing.
func (e *Engine) Apply(ctx context.Context, snap datatypes.Snapshot) ([]datatypes.Recommendation, error) {
	recs := e.Derive(snap)
	if len(recs) == 0 {
		return nil, nil
	}
	if e.st == nil {
		return nil, fmt.Errorf("recommend: engine has no store")
	}

	b := e.st.Batch()
	for _, r := range recs {
		fields := r.Fields()
		fields["timestamp"] = store.ServerTimestamp
		b.Add(datatypes.CollectionRecommendations, fields)
	}
	if err := b.Commit(ctx); err != nil {
		return nil, fmt.Errorf("persist recommendations: %w", err)
	}
	return recs, nil
}
