// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/wanyonyi-dev/risk-analysis-app/internal/store"
)

// =============================================================================
// Store
// =============================================================================

// Store implements store.Store on an embedded BadgerDB.
//
// # Description
//
// Documents are JSON-encoded field maps under keys "<collection>/<id>".
// Writes go through a single publish mutex so change notifications are
// delivered in commit order per collection. ServerTimestamp sentinels are
// resolved to the commit wall-clock time.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Write throughput is serialized
// by the publish mutex, which is acceptable at dashboard scale and is what
// makes the per-collection event ordering guarantee hold.
type Store struct {
	db *badger.DB
	gc *gcRunner

	// pubMu serializes commit+notify so subscribers observe writes in
	// commit order.
	pubMu sync.Mutex

	subMu  sync.Mutex
	subs   map[string]map[int]chan store.Event
	nextID int
	closed bool
}

// Open opens a document store with the given configuration.
//
// # Description
//
// Opens the underlying BadgerDB (creating the directory if needed) and
// starts the GC runner when configured. Call Close when done.
//
// # Inputs
//
//   - cfg: Database configuration. Path is required unless InMemory is true.
//
// # Outputs
//
//   - *Store: The opened store.
//   - error: Non-nil if the database cannot be opened.
func Open(cfg Config) (*Store, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:   db,
		subs: make(map[string]map[int]chan store.Event),
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gc = newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
		s.gc.Start()
	}
	return s, nil
}

// OpenInMemory opens an in-memory store for testing. Data is lost on Close.
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

// Close stops garbage collection, closes all subscriptions, and closes the
// database. Safe to call once.
func (s *Store) Close() error {
	s.subMu.Lock()
	s.closed = true
	for _, chans := range s.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	s.subs = make(map[string]map[int]chan store.Event)
	s.subMu.Unlock()

	if s.gc != nil {
		s.gc.Stop()
	}
	return s.db.Close()
}

// =============================================================================
// Reads
// =============================================================================

// Get returns the document at path, or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, path string) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return store.Document{}, err
	}
	_, id, err := store.SplitPath(path)
	if err != nil {
		return store.Document{}, err
	}

	var fields map[string]any
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(path))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &fields)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.Document{}, store.ErrNotFound
	}
	if err != nil {
		return store.Document{}, fmt.Errorf("get %s: %w", path, mapErr(err))
	}
	return store.Document{Path: path, ID: id, Fields: fields}, nil
}

// List returns every document in collection, ordered by document ID.
func (s *Store) List(ctx context.Context, collection string) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(collection + "/")

	var docs []store.Document
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			path := string(item.Key())
			var fields map[string]any
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &fields)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", path, err)
			}
			docs = append(docs, store.Document{
				Path:   path,
				ID:     path[len(prefix):],
				Fields: fields,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, mapErr(err))
	}
	return docs, nil
}

// Count returns the number of documents in collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	prefix := []byte(collection + "/")

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false // key-only scan
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, mapErr(err))
	}
	return count, nil
}

// =============================================================================
// Writes
// =============================================================================

// Set writes fields to the document at path, merging with any existing
// fields when merge is true.
func (s *Store) Set(ctx context.Context, path string, fields map[string]any, merge bool) error {
	b := s.Batch()
	b.Set(path, fields, merge)
	return b.Commit(ctx)
}

// Add appends a new document to collection and returns its store-chosen ID.
func (s *Store) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.New().String()
	b := s.Batch()
	b.Set(store.Path(collection, id), fields, false)
	if err := b.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

// op is one staged batch write.
type op struct {
	path   string
	fields map[string]any
	merge  bool
	isAdd  bool
}

// batch implements store.Batch. Single-use, not safe for concurrent use.
type batch struct {
	s   *Store
	ops []op
}

// Batch starts a new atomic write batch.
func (s *Store) Batch() store.Batch {
	return &batch{s: s}
}

func (b *batch) Set(path string, fields map[string]any, merge bool) store.Batch {
	b.ops = append(b.ops, op{path: path, fields: fields, merge: merge})
	return b
}

func (b *batch) Add(collection string, fields map[string]any) store.Batch {
	b.ops = append(b.ops, op{
		path:   store.Path(collection, uuid.New().String()),
		fields: fields,
		isAdd:  true,
	})
	return b
}

// Commit applies all staged writes in one BadgerDB transaction and then
// notifies subscribers. All-or-nothing: a failure leaves no partial state.
func (b *batch) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.s.pubMu.Lock()
	defer b.s.pubMu.Unlock()

	now := time.Now().UTC()
	events := make([]store.Event, 0, len(b.ops))

	err := b.s.db.Update(func(txn *badger.Txn) error {
		for _, o := range b.ops {
			collection, _, err := store.SplitPath(o.path)
			if err != nil {
				return err
			}

			fields := resolveTimestamps(o.fields, now)
			if o.merge {
				existing, err := readFields(txn, o.path)
				if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("read for merge %s: %w", o.path, err)
				}
				if existing != nil {
					for k, v := range fields {
						existing[k] = v
					}
					fields = existing
				}
			}

			raw, err := json.Marshal(fields)
			if err != nil {
				return fmt.Errorf("encode %s: %w", o.path, err)
			}
			if err := txn.Set([]byte(o.path), raw); err != nil {
				return fmt.Errorf("set %s: %w", o.path, err)
			}

			evType := store.EventSet
			if o.isAdd {
				evType = store.EventAdd
			}
			events = append(events, store.Event{
				Type:       evType,
				Collection: collection,
				Path:       o.path,
				Fields:     fields,
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit batch: %w", mapErr(err))
	}

	b.s.publish(events)
	return nil
}

// mapErr translates badger lifecycle errors into store sentinels so callers
// never depend on the backend package.
func mapErr(err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		return store.ErrClosed
	}
	return err
}

// readFields reads and decodes one document inside a transaction.
func readFields(txn *badger.Txn, path string) (map[string]any, error) {
	item, err := txn.Get([]byte(path))
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &fields)
	}); err != nil {
		return nil, err
	}
	return fields, nil
}

// resolveTimestamps copies fields, replacing ServerTimestamp sentinels with
// the commit time. The caller's map is never mutated.
func resolveTimestamps(fields map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if store.IsServerTimestamp(v) {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}

// =============================================================================
// Subscriptions
// =============================================================================

// Subscribe registers a change listener for one collection.
//
// Events are delivered in commit order. A subscriber whose buffer is full
// has events dropped rather than blocking writers; size the buffer for the
// expected write burst (a full scan run is tickCount+1 writes per
// collection).
func (s *Store) Subscribe(collection string, buffer int) (<-chan store.Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	ch := make(chan store.Event, buffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	if s.subs[collection] == nil {
		s.subs[collection] = make(map[int]chan store.Event)
	}
	s.subs[collection][id] = ch

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if chans, ok := s.subs[collection]; ok {
			if c, ok := chans[id]; ok {
				delete(chans, id)
				close(c)
			}
		}
	}
	return ch, cancel
}

// publish fans events out to collection subscribers. Called with pubMu held.
func (s *Store) publish(events []store.Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ev := range events {
		for _, ch := range s.subs[ev.Collection] {
			select {
			case ch <- ev:
			default:
				// Slow subscriber: drop rather than stall the write path.
			}
		}
	}
}
