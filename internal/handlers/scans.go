// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wanyonyi-dev/risk-analysis-app/internal/datatypes"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/scan"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/store"
)

// StartScan launches a new scan run.
//
// The run outlives the request, so it is governed by runCtx (the server's
// lifetime context), not the request context. Returns 202 with the run ID,
// or 409 when a run is already in flight (the orchestrator guarantees no
// side effects in that case).
func StartScan(orch *scan.Orchestrator, runCtx context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID, err := orch.Start(runCtx)
		if err != nil {
			if errors.Is(err, scan.ErrScanActive) {
				state, active := orch.State()
				c.JSON(http.StatusConflict, gin.H{
					"error":  "scan already running",
					"state":  state,
					"run_id": active,
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"scan_id": runID})
	}
}

// ScanState reports the orchestrator's current state.
func ScanState(orch *scan.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, runID := orch.State()
		c.JSON(http.StatusOK, gin.H{"state": state, "run_id": runID})
	}
}

// GetScanRun returns one ScanRun document.
func GetScanRun(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		doc, err := st.Get(c.Request.Context(), store.Path(datatypes.CollectionScans, id))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		run, err := datatypes.ScanRunFromFields(doc.ID, doc.Fields)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, run)
	}
}
