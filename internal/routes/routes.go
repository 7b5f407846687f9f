// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wanyonyi-dev/risk-analysis-app/internal/auth"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/handlers"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/middleware"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/scan"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/store"
)

// SetupRoutes wires the API surface. runCtx is the server lifetime context
// that scan runs are bound to.
func SetupRoutes(router *gin.Engine, st store.Store, orch *scan.Orchestrator,
	provider auth.AuthProvider, runCtx context.Context) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(provider))
	{
		scans := v1.Group("/scans")
		{
			scans.POST("", handlers.StartScan(orch, runCtx))
			scans.GET("/state", handlers.ScanState(orch))
			scans.GET("/:id", handlers.GetScanRun(st))
		}

		v1.GET("/dashboard/metrics", handlers.GetSecurityMetrics(st))
		v1.GET("/threats", handlers.ListThreats(st))
		v1.GET("/activity", handlers.ListActivity(st))
		v1.GET("/recommendations", handlers.ListRecommendations(st))
		v1.GET("/stream", handlers.HandleStream(st, orch))
	}
}
