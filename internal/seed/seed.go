// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package seed writes the dashboard's first-load defaults: one example
// recommendation, the SecurityMetrics singleton, and two fixed threats.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/wanyonyi-dev/risk-analysis-app/internal/datatypes"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/store"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// defaultsFile mirrors the embedded defaults.yaml layout.
type defaultsFile struct {
	Metrics struct {
		SecureScore float64 `yaml:"secure_score"`
		RiskScore   float64 `yaml:"risk_score"`
	} `yaml:"metrics"`
	Threats []struct {
		Title string `yaml:"title"`
		Level string `yaml:"level"`
		Type  string `yaml:"type"`
	} `yaml:"threats"`
	Recommendation struct {
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		Priority    string `yaml:"priority"`
		Type        string `yaml:"type"`
	} `yaml:"recommendation"`
}

// Result reports what EnsureDefaults did. The scores echo the seeded
// metrics document so callers don't have to re-read (or hardcode) them.
type Result struct {
	Seeded      bool
	SecureScore float64
	RiskScore   float64
}

// EnsureDefaults seeds the store on first load.
//
// # Description
//
// The sole gate is the recommendations collection: when it is empty, the
// defaults are written in one atomic batch; when it holds anything, the
// call is a no-op even if metrics or threats are missing. (Seed state is
// inferred from recommendations alone, so externally deleting threats does
// not re-seed them. A per-collection marker would decouple this; the
// single gate is kept to match the workflow's established semantics.)
//
// # Outputs
//
//   - Result: Seeded is true when defaults were written by this call, with
//     the metrics scores that went into the store.
//   - error: Non-nil if the gate query or batch commit fails. Safe to
//     retry on the next load: a failed batch leaves nothing behind.
func EnsureDefaults(ctx context.Context, st store.Store) (Result, error) {
	n, err := st.Count(ctx, datatypes.CollectionRecommendations)
	if err != nil {
		return Result{}, fmt.Errorf("check seed gate: %w", err)
	}
	if n > 0 {
		return Result{}, nil
	}

	defs, err := parseDefaults()
	if err != nil {
		return Result{}, err
	}

	b := st.Batch()

	rec := datatypes.Recommendation{
		Title:       defs.Recommendation.Title,
		Description: defs.Recommendation.Description,
		Priority:    defs.Recommendation.Priority,
		Type:        defs.Recommendation.Type,
	}
	recFields := rec.Fields()
	recFields["timestamp"] = store.ServerTimestamp
	b.Add(datatypes.CollectionRecommendations, recFields)

	metrics := datatypes.SecurityMetrics{
		SecureScore: defs.Metrics.SecureScore,
		RiskScore:   defs.Metrics.RiskScore,
	}
	metricsFields := metrics.Fields()
	metricsFields["last_updated"] = store.ServerTimestamp
	b.Set(store.Path(datatypes.CollectionMetrics, datatypes.MetricsDocID), metricsFields, false)

	for _, t := range defs.Threats {
		threat := datatypes.Threat{Title: t.Title, Level: t.Level, Type: t.Type}
		b.Add(datatypes.CollectionThreats, threat.Fields())
	}

	if err := b.Commit(ctx); err != nil {
		return Result{}, fmt.Errorf("seed defaults: %w", err)
	}

	slog.Info("seeded default dashboard data",
		"threats", len(defs.Threats),
		"secure_score", defs.Metrics.SecureScore,
		"risk_score", defs.Metrics.RiskScore,
	)
	return Result{
		Seeded:      true,
		SecureScore: defs.Metrics.SecureScore,
		RiskScore:   defs.Metrics.RiskScore,
	}, nil
}

func parseDefaults() (defaultsFile, error) {
	var defs defaultsFile
	if err := yaml.Unmarshal(defaultsYAML, &defs); err != nil {
		return defs, fmt.Errorf("unmarshal embedded defaults file: %w", err)
	}
	if len(defs.Threats) == 0 || defs.Recommendation.Title == "" {
		return defs, fmt.Errorf("defaults file is incomplete")
	}
	return defs, nil
}
