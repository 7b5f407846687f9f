// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store defines the document store contract consumed by the scan
// workflow: mapping-style documents addressed as "<collection>/<id>",
// merge-writes, atomic batches, and per-collection change subscriptions.
//
// The contract mirrors what a hosted document database offers so the
// service logic stays backend-agnostic. The embedded BadgerDB
// implementation lives in the badgerstore subpackage.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Errors
// =============================================================================

// ErrNotFound is returned by Get when no document exists at the path.
var ErrNotFound = errors.New("store: document not found")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// =============================================================================
// Server timestamp sentinel
// =============================================================================

// serverTimestamp is the unexported sentinel type behind ServerTimestamp.
type serverTimestamp struct{}

// ServerTimestamp is a sentinel field value. When a write is committed, the
// store replaces every field holding this sentinel with the store-side
// commit time. Use it wherever wall-clock skew between writers matters.
//
//	st.Set(ctx, "scans/"+id, map[string]any{
//	    "timestamp": store.ServerTimestamp,
//	}, true)
var ServerTimestamp = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// =============================================================================
// Documents and events
// =============================================================================

// Document is a stored field map plus its address.
type Document struct {
	// Path is "<collection>/<id>".
	Path string
	// ID is the document ID within its collection.
	ID string
	// Fields is the decoded field map. Numeric fields decode as float64
	// and timestamps as RFC 3339 strings (JSON round-trip semantics).
	Fields map[string]any
}

// EventType describes what a change event carries.
type EventType string

const (
	// EventSet is emitted for Set writes (merge or replace).
	EventSet EventType = "set"
	// EventAdd is emitted for Add writes (new document, store-chosen ID).
	EventAdd EventType = "add"
)

// Event is one change notification delivered to a subscriber.
//
// Delivery is ordered per collection in commit order. No ordering is
// guaranteed across collections: independent subscriptions may observe
// related writes out of sync with each other.
type Event struct {
	Type       EventType
	Collection string
	Path       string
	Fields     map[string]any
}

// =============================================================================
// Interfaces
// =============================================================================

// Batch accumulates writes that Commit applies atomically: either every
// write in the batch is persisted or none are. Batches are single-use and
// not safe for concurrent use.
type Batch interface {
	// Set stages a write to the document at path. With merge true, fields
	// absent from this write are preserved; with merge false the document
	// is replaced.
	Set(path string, fields map[string]any, merge bool) Batch

	// Add stages a new document in collection with a store-chosen ID.
	Add(collection string, fields map[string]any) Batch

	// Commit applies all staged writes in one atomic transaction and
	// resolves ServerTimestamp sentinels to the commit time.
	Commit(ctx context.Context) error
}

// Store is the document store consumed by the scan orchestrator, the
// recommendation engine, seeding, and the HTTP handlers.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Store interface {
	// Get returns the document at path, or ErrNotFound.
	Get(ctx context.Context, path string) (Document, error)

	// Set writes fields to the document at path. With merge true, existing
	// fields not present in this write are preserved (merge-write); with
	// merge false the document is replaced. The document is created if
	// absent either way.
	Set(ctx context.Context, path string, fields map[string]any, merge bool) error

	// Add appends a new document to collection with a store-chosen ID and
	// returns that ID.
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)

	// List returns every document in collection. Order is by document ID,
	// not insertion time.
	List(ctx context.Context, collection string) ([]Document, error)

	// Count returns the number of documents in collection.
	Count(ctx context.Context, collection string) (int, error)

	// Batch starts a new atomic write batch.
	Batch() Batch

	// Subscribe registers a change listener for one collection. Events are
	// delivered in commit order on the returned channel (buffered by
	// buffer). A slow subscriber that fills its buffer drops events rather
	// than blocking writers. The cancel func releases the subscription and
	// closes the channel.
	Subscribe(collection string, buffer int) (<-chan Event, func())

	// Close releases the store. Outstanding subscriptions are closed.
	Close() error
}

// =============================================================================
// Path helpers
// =============================================================================

// Path joins a collection and document ID into a document path.
func Path(collection, id string) string {
	return collection + "/" + id
}

// SplitPath splits "<collection>/<id>" into its parts.
func SplitPath(path string) (collection, id string, err error) {
	i := strings.IndexByte(path, '/')
	if i <= 0 || i == len(path)-1 {
		return "", "", fmt.Errorf("store: invalid document path %q", path)
	}
	return path[:i], path[i+1:], nil
}
