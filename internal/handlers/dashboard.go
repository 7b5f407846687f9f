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
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wanyonyi-dev/risk-analysis-app/internal/datatypes"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/store"
)

// GetSecurityMetrics returns the SecurityMetrics singleton.
func GetSecurityMetrics(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := st.Get(c.Request.Context(),
			store.Path(datatypes.CollectionMetrics, datatypes.MetricsDocID))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "metrics not seeded yet"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, doc.Fields)
	}
}

// ListThreats returns every threat document.
func ListThreats(st store.Store) gin.HandlerFunc {
	return listCollection(st, datatypes.CollectionThreats)
}

// ListActivity returns the activity log.
func ListActivity(st store.Store) gin.HandlerFunc {
	return listCollection(st, datatypes.CollectionActivity)
}

// ListRecommendations returns every recommendation.
func ListRecommendations(st store.Store) gin.HandlerFunc {
	return listCollection(st, datatypes.CollectionRecommendations)
}

func listCollection(st store.Store, collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, err := st.List(c.Request.Context(), collection)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		items := make([]gin.H, 0, len(docs))
		for _, d := range docs {
			items = append(items, gin.H{"id": d.ID, "fields": d.Fields})
		}
		c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
	}
}
