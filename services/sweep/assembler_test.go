// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sweep

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/FemtoSweep/services/sweep/hist"
)

// TestNodeName covers uncut omission and cut segment formatting.
func TestNodeName(t *testing.T) {
	tests := []struct {
		name  string
		rebin int
		sel   Selection
		want  string
	}{
		{
			"all uncut",
			4,
			Selection{{NoCut: true}, {NoCut: true}},
			"Rebin_4",
		},
		{
			"one cut dimension",
			1,
			Selection{{NoCut: true}, {Lower: 0.5, Upper: 1.5}},
			"Rebin_1_Dim_1-0.5-1.5",
		},
		{
			"two cut dimensions",
			2,
			Selection{{Lower: 0, Upper: 20}, {NoCut: true}, {Lower: 3, Upper: 4}},
			"Rebin_2_Dim_0-0-20_Dim_2-3-4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NodeName(tt.rebin, tt.sel))
		})
	}
}

// TestCheckCollisions flags duplicate names and passes distinct ones.
func TestCheckCollisions(t *testing.T) {
	ok := []Job{
		{Name: "Rebin_1"},
		{Name: "Rebin_2"},
		{Name: "Rebin_1_Dim_0-0-1"},
	}
	require.NoError(t, CheckCollisions(ok))

	dup := append(ok, Job{Name: "Rebin_2"})
	assert.ErrorIs(t, CheckCollisions(dup), ErrOutputCollision)
}

// TestNodeNameUniqueness fuzzes adversarial boundary values: for any
// valid configuration, no two distinct jobs may resolve to the same
// path.
func TestNodeNameUniqueness(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ax := hist.UniformAxis(100, 0, 10)

	for trial := 0; trial < 50; trial++ {
		dims := make([][]SubRange, 3)
		for d := range dims {
			if rng.Intn(4) == 0 {
				planned, err := PlanDimension(nil, ax)
				require.NoError(t, err)
				dims[d] = planned
				continue
			}
			n := 2 + rng.Intn(4)
			bounds := make([]float64, n)
			v := rng.Float64()
			for i := range bounds {
				bounds[i] = v
				v += 0.01 + rng.Float64()*2
			}
			// keep within the axis domain
			for i := range bounds {
				bounds[i] = bounds[i] / v * 10
			}
			planned, err := PlanDimension(bounds, ax)
			require.NoError(t, err)
			dims[d] = planned
		}

		jobs, err := ExpandJobs([]int{1, 2, 5}, Combinations(dims), 100)
		require.NoError(t, err)
		assert.NoError(t, CheckCollisions(jobs), "trial %d: %v", trial, func() []string {
			names := make([]string, len(jobs))
			for i, j := range jobs {
				names[i] = j.Name
			}
			return names
		}())
	}
}

// TestNodePath joins root and name.
func TestNodePath(t *testing.T) {
	assert.Equal(t, fmt.Sprintf("results/%s", "Rebin_1"), NodePath("results", "Rebin_1"))
}
