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
	"fmt"
	"strings"
	"sync"

	"github.com/AleutianAI/FemtoSweep/services/sweep"
)

// MemoryStore is an in-memory NodeWriter for tests and dry runs. Nodes
// are kept in serialized form, so two runs can be compared byte for
// byte.
//
// Thread Safety: Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string][]byte
}

var _ sweep.NodeWriter = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nodes: make(map[string][]byte)}
}

// WriteNode stores the node's serialized form under its path.
func (s *MemoryStore) WriteNode(ctx context.Context, path string, node *sweep.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("encode node %s: %w", path, err)
	}
	s.mu.Lock()
	s.nodes[path] = data
	s.mu.Unlock()
	return nil
}

// Reset removes every node under the prefix.
func (s *MemoryStore) Reset(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.nodes {
		if strings.HasPrefix(k, prefix+"/") {
			delete(s.nodes, k)
		}
	}
	return nil
}

// Node decodes and returns the node at path, or nil when absent.
func (s *MemoryStore) Node(path string) *sweep.Node {
	s.mu.RLock()
	data, ok := s.nodes[path]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	var node sweep.Node
	if err := json.Unmarshal(data, &node); err != nil {
		return nil
	}
	return &node
}

// Snapshot returns a copy of the serialized node map.
func (s *MemoryStore) Snapshot() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(s.nodes))
	for k, v := range s.nodes {
		out[k] = append([]byte(nil), v...)
	}
	return out
}
