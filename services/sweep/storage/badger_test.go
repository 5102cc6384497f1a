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
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/FemtoSweep/services/sweep"
	"github.com/AleutianAI/FemtoSweep/services/sweep/hist"
)

func testNode(name string) *sweep.Node {
	h := hist.New(hist.UniformAxis(4, 0, 4))
	h.SetBin([]int{1}, 3, 1)
	return &sweep.Node{
		Name: name,
		SE:   map[string]*hist.Histogram{sweep.NameSE: h},
		ME:   map[string]*hist.Histogram{sweep.NameME: h.Clone()},
		CF:   map[string]*sweep.CorrFunc{},
	}
}

// TestBadgerWriteRead round-trips one node through an in-memory store.
func TestBadgerWriteRead(t *testing.T) {
	store, err := OpenBadger(InMemoryBadgerConfig())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	node := testNode("Rebin_1")
	require.NoError(t, store.WriteNode(ctx, "results/Rebin_1", node))

	got, err := store.ReadNode(ctx, "results/Rebin_1")
	require.NoError(t, err)
	assert.Equal(t, node.Name, got.Name)
	require.Contains(t, got.SE, sweep.NameSE)
	assert.Equal(t, 3.0, got.SE[sweep.NameSE].BinContent([]int{1}))
}

// TestBadgerConcurrentDisjointWrites: concurrent writes to disjoint
// paths all persist.
func TestBadgerConcurrentDisjointWrites(t *testing.T) {
	store, err := OpenBadger(InMemoryBadgerConfig())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	const n = 32
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := fmt.Sprintf("results/Rebin_%d", i)
			errs[i] = store.WriteNode(ctx, path, testNode(path))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "writer %d", i)
	}
	paths, err := store.ListNodes(ctx, "results")
	require.NoError(t, err)
	assert.Len(t, paths, n)
}

// TestBadgerReset removes only the given prefix.
func TestBadgerReset(t *testing.T) {
	store, err := OpenBadger(InMemoryBadgerConfig())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.WriteNode(ctx, "results/Rebin_1", testNode("Rebin_1")))
	require.NoError(t, store.WriteNode(ctx, "results/Rebin_2", testNode("Rebin_2")))
	require.NoError(t, store.WriteNode(ctx, "other/Rebin_1", testNode("Rebin_1")))

	require.NoError(t, store.Reset(ctx, "results"))

	paths, err := store.ListNodes(ctx, "results")
	require.NoError(t, err)
	assert.Empty(t, paths)

	kept, err := store.ListNodes(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

// TestBadgerPersistent writes survive a close and reopen.
func TestBadgerPersistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := OpenBadger(DefaultBadgerConfig(dir))
	require.NoError(t, err)
	require.NoError(t, store.WriteNode(ctx, "results/Rebin_4", testNode("Rebin_4")))
	require.NoError(t, store.Close())

	store2, err := OpenBadger(DefaultBadgerConfig(dir))
	require.NoError(t, err)
	defer store2.Close()

	got, err := store2.ReadNode(ctx, "results/Rebin_4")
	require.NoError(t, err)
	assert.Equal(t, "Rebin_4", got.Name)
}

// TestBadgerRequiresPath rejects a persistent store without a path.
func TestBadgerRequiresPath(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{})
	assert.Error(t, err)
}

// TestMemoryStore exercises the in-memory NodeWriter used by dry runs.
func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.WriteNode(ctx, "results/Rebin_1", testNode("Rebin_1")))
	require.NotNil(t, store.Node("results/Rebin_1"))
	assert.Nil(t, store.Node("results/Rebin_2"))

	require.NoError(t, store.Reset(ctx, "results"))
	assert.Nil(t, store.Node("results/Rebin_1"))
	assert.Empty(t, store.Snapshot())
}
