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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/FemtoSweep/services/sweep/hist"
)

// TestPlanDimensionEmpty yields exactly one full-axis NoCut range.
func TestPlanDimensionEmpty(t *testing.T) {
	ax := hist.UniformAxis(10, 0, 5)

	ranges, err := PlanDimension(nil, ax)
	require.NoError(t, err)

	require.Len(t, ranges, 1)
	assert.True(t, ranges[0].NoCut)
	assert.Equal(t, 0.0, ranges[0].Lower)
	assert.Equal(t, 5.0, ranges[0].Upper)
	assert.Equal(t, 0, ranges[0].BinLo)
	assert.Equal(t, 10, ranges[0].BinHi)
}

// TestPlanDimensionSplits verifies k+1 boundaries produce k contiguous
// half-open sub-ranges with no gaps or overlaps.
func TestPlanDimensionSplits(t *testing.T) {
	ax := hist.UniformAxis(8, 0, 4) // bin width 0.5

	ranges, err := PlanDimension([]float64{0.5, 1.5, 3, 4}, ax)
	require.NoError(t, err)

	require.Len(t, ranges, 3)
	for i, r := range ranges {
		assert.False(t, r.NoCut)
		if i > 0 {
			assert.Equal(t, ranges[i-1].Upper, r.Lower, "contiguous values")
			assert.Equal(t, ranges[i-1].BinHi, r.BinLo, "contiguous bins")
		}
	}
	assert.Equal(t, 0.5, ranges[0].Lower)
	assert.Equal(t, 4.0, ranges[2].Upper)
	assert.Equal(t, 1, ranges[0].BinLo)
	assert.Equal(t, 8, ranges[2].BinHi)
}

// TestPlanDimensionUpperEdgeSnap: a boundary exactly on a bin edge
// closes the range at that edge instead of leaking one bin further.
func TestPlanDimensionUpperEdgeSnap(t *testing.T) {
	ax := hist.UniformAxis(4, 0, 4)

	ranges, err := PlanDimension([]float64{1, 2}, ax)
	require.NoError(t, err)

	require.Len(t, ranges, 1)
	assert.Equal(t, 1, ranges[0].BinLo)
	assert.Equal(t, 2, ranges[0].BinHi, "exactly one bin selected")
}

// TestPlanDimensionErrors covers domain and monotonicity violations.
func TestPlanDimensionErrors(t *testing.T) {
	ax := hist.UniformAxis(10, 0, 5)

	tests := []struct {
		name       string
		boundaries []float64
	}{
		{"below domain", []float64{-1, 2}},
		{"above domain", []float64{1, 6}},
		{"not increasing", []float64{1, 1}},
		{"decreasing", []float64{3, 2}},
		{"single boundary", []float64{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlanDimension(tt.boundaries, ax)
			assert.ErrorIs(t, err, ErrInvalidRange)
		})
	}
}
