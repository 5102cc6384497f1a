// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/FemtoSweep/services/sweep"
)

// BadgerConfig holds configuration for the BadgerDB output store.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files. Required unless InMemory
	// is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence). Useful for
	// testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output. If nil, internal
	// logging is disabled.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns production defaults: durable synchronous
// writes at the given path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{Path: path, SyncWrites: true}
}

// InMemoryBadgerConfig returns a configuration for tests: in-memory,
// no sync.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore persists sweep output nodes in an embedded BadgerDB.
// Each node is one JSON value keyed by its hierarchical path, so
// concurrent writes to disjoint paths never contend beyond Badger's own
// transaction machinery.
//
// Thread Safety: Safe for concurrent use.
type BadgerStore struct {
	db *badger.DB
}

// Compile-time check that BadgerStore satisfies the scheduler's
// capability interface.
var _ sweep.NodeWriter = (*BadgerStore)(nil)

// OpenBadger creates and opens the output store.
//
// Outputs:
//   - *BadgerStore: The opened store. Caller must Close() when done.
//   - error: Non-nil if the path is missing or the database cannot be
//     opened.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open output store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// WriteNode persists one node under its path.
func (s *BadgerStore) WriteNode(ctx context.Context, path string, node *sweep.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("encode node %s: %w", path, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(path), data)
	})
	if err != nil {
		return fmt.Errorf("write node %s: %w", path, err)
	}
	return nil
}

// ReadNode loads one node by path. Returns badger.ErrKeyNotFound when
// the path does not exist.
func (s *BadgerStore) ReadNode(ctx context.Context, path string) (*sweep.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var node sweep.Node
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(path))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &node)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read node %s: %w", path, err)
	}
	return &node, nil
}

// ListNodes returns every node path under the given prefix, in key
// order.
func (s *BadgerStore) ListNodes(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var paths []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		p := []byte(prefix + "/")
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			paths = append(paths, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list nodes under %s: %w", prefix, err)
	}
	return paths, nil
}

// Reset deletes every node under the prefix so a re-run replaces the
// previous subtree instead of merging into stale results.
func (s *BadgerStore) Reset(ctx context.Context, prefix string) error {
	paths, err := s.ListNodes(ctx, prefix)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, p := range paths {
			if err := txn.Delete([]byte(p)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reset %s: %w", prefix, err)
	}
	slog.Debug("output subtree replaced",
		slog.String("prefix", prefix),
		slog.Int("nodes_removed", len(paths)),
	)
	return nil
}
