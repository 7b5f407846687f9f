// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/wanyonyi-dev/risk-analysis-app/internal/datatypes"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/store"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/store/badgerstore"
)

func newTestStore(t *testing.T) *badgerstore.Store {
	t.Helper()
	st, err := badgerstore.OpenInMemory()
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestEnsureDefaultsSeedsEmptyStore(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	res, err := EnsureDefaults(ctx, st)
	if err != nil {
		t.Fatalf("EnsureDefaults failed: %v", err)
	}
	if !res.Seeded {
		t.Fatal("EnsureDefaults reported no-op on an empty store")
	}

	recs, err := st.Count(ctx, datatypes.CollectionRecommendations)
	if err != nil {
		t.Fatalf("Count recommendations: %v", err)
	}
	if recs != 1 {
		t.Errorf("seeded recommendations = %d, want 1", recs)
	}

	threats, err := st.Count(ctx, datatypes.CollectionThreats)
	if err != nil {
		t.Fatalf("Count threats: %v", err)
	}
	if threats != 2 {
		t.Errorf("seeded threats = %d, want 2", threats)
	}

	doc, err := st.Get(ctx, store.Path(datatypes.CollectionMetrics, datatypes.MetricsDocID))
	if err != nil {
		t.Fatalf("Get metrics singleton: %v", err)
	}
	if got := doc.Fields["secure_score"]; got != res.SecureScore {
		t.Errorf("stored secure_score = %v, want the reported %v", got, res.SecureScore)
	}
	if got := doc.Fields["risk_score"]; got != res.RiskScore {
		t.Errorf("stored risk_score = %v, want the reported %v", got, res.RiskScore)
	}
	if res.SecureScore != 75 || res.RiskScore != 25 {
		t.Errorf("reported scores = %v/%v, want 75/25", res.SecureScore, res.RiskScore)
	}
	if _, ok := doc.Fields["last_updated"]; !ok {
		t.Error("metrics singleton has no resolved last_updated timestamp")
	}
}

func TestEnsureDefaultsIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := EnsureDefaults(ctx, st); err != nil {
		t.Fatalf("first EnsureDefaults failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		res, err := EnsureDefaults(ctx, st)
		if err != nil {
			t.Fatalf("EnsureDefaults run %d failed: %v", i+2, err)
		}
		if res.Seeded {
			t.Fatalf("EnsureDefaults run %d re-seeded a seeded store", i+2)
		}
	}

	recs, _ := st.Count(ctx, datatypes.CollectionRecommendations)
	threats, _ := st.Count(ctx, datatypes.CollectionThreats)
	if recs != 1 || threats != 2 {
		t.Errorf("after repeated seeding: recommendations=%d threats=%d, want 1 and 2", recs, threats)
	}
}

// The gate is the recommendations collection alone: any entry there skips
// seeding even when the other collections are empty.
func TestSeedGateIsRecommendationsOnly(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.Add(ctx, datatypes.CollectionRecommendations, map[string]any{
		"title": "pre-existing", "type": datatypes.RecommendationTypeSystemUpdate,
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	res, err := EnsureDefaults(ctx, st)
	if err != nil {
		t.Fatalf("EnsureDefaults failed: %v", err)
	}
	if res.Seeded {
		t.Error("EnsureDefaults seeded despite a non-empty recommendations collection")
	}
	threats, _ := st.Count(ctx, datatypes.CollectionThreats)
	if threats != 0 {
		t.Errorf("threats = %d, want 0 (gate should have skipped seeding)", threats)
	}
	if _, err := st.Get(ctx, store.Path(datatypes.CollectionMetrics, datatypes.MetricsDocID)); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("metrics Get error = %v, want ErrNotFound", err)
	}
}
