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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/FemtoSweep/services/sweep/hist"
)

func hist1d(counts ...float64) *hist.Histogram {
	h := hist.New(hist.UniformAxis(len(counts), 0, float64(len(counts))))
	for i, c := range counts {
		h.SetBin([]int{i}, c, math.Sqrt(c))
	}
	return h
}

// TestComputeCFScaleFactor: SE=[10,20,10], ME=[5,10,5] over a window
// covering all three bins gives normSE=40, normME=20, alpha=0.5 and a
// flat CF of 1.
func TestComputeCFScaleFactor(t *testing.T) {
	se := hist1d(10, 20, 10)
	me := hist1d(5, 10, 5)

	cf, err := ComputeCF(se, me, 0, 3, Job{Rebin: 1})
	require.NoError(t, err)

	require.Len(t, cf.Values, 3)
	for i, v := range cf.Values {
		assert.InDelta(t, 1.0, v, 1e-12, "bin %d", i)
		assert.False(t, cf.Undefined[i])
	}
}

// TestComputeCFErrorPropagation checks the independent-Poisson error
// formula on one bin.
func TestComputeCFErrorPropagation(t *testing.T) {
	se := hist1d(10, 20, 10)
	me := hist1d(5, 10, 5)

	cf, err := ComputeCF(se, me, 0, 3, Job{Rebin: 1})
	require.NoError(t, err)

	// CF[0]=1, sigma = sqrt(1/10 + 1/5)
	want := math.Sqrt(1.0/10 + 1.0/5)
	assert.InDelta(t, want, cf.Errors[0], 1e-12)
}

// TestComputeCFUndefinedBins: ME[i]==0 flags the bin undefined instead
// of a silent zero, regardless of SE[i].
func TestComputeCFUndefinedBins(t *testing.T) {
	se := hist1d(10, 7, 10)
	me := hist1d(5, 0, 5)

	cf, err := ComputeCF(se, me, 0, 3, Job{Rebin: 1})
	require.NoError(t, err)

	assert.False(t, cf.Undefined[0])
	assert.True(t, cf.Undefined[1])
	assert.Zero(t, cf.Values[1])
	assert.Zero(t, cf.Errors[1])
}

// TestComputeCFZeroCountBin: SE[i]==0 with ME[i]>0 is a genuine zero
// ratio, but no uncertainty can be derived from a zero count, so the
// bin is flagged rather than carrying sigma=0.
func TestComputeCFZeroCountBin(t *testing.T) {
	se := hist1d(10, 0, 10)
	me := hist1d(5, 10, 5)

	cf, err := ComputeCF(se, me, 0, 3, Job{Rebin: 1})
	require.NoError(t, err)

	assert.True(t, cf.Undefined[1])
	assert.Zero(t, cf.Values[1])
	assert.Zero(t, cf.Errors[1])
	assert.False(t, cf.Undefined[0], "well-measured bins stay defined")
}

// TestComputeCFEmptyNormalization fails when either window integral is
// zero.
func TestComputeCFEmptyNormalization(t *testing.T) {
	filled := hist1d(10, 20, 10)
	empty := hist1d(0, 0, 0)

	_, err := ComputeCF(empty, filled, 0, 3, Job{})
	assert.ErrorIs(t, err, ErrEmptyNormalizationRange)

	_, err = ComputeCF(filled, empty, 0, 3, Job{})
	assert.ErrorIs(t, err, ErrEmptyNormalizationRange)
}

// TestComputeCFBinningMismatch rejects SE/ME pairs with different
// binning.
func TestComputeCFBinningMismatch(t *testing.T) {
	_, err := ComputeCF(hist1d(1, 2), hist1d(1, 2, 3), 0, 2, Job{})
	assert.Error(t, err)
}

// TestComputeCFWindowOutsideAxis rejects a normalization window beyond
// the axis domain.
func TestComputeCFWindowOutsideAxis(t *testing.T) {
	_, err := ComputeCF(hist1d(1, 2), hist1d(1, 2), 1, 5, Job{})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

// TestBuildNode runs the full per-job pipeline on a 2-D input with a
// cut on the second dimension and checks the assembled subtree.
func TestBuildNode(t *testing.T) {
	kstar := hist.UniformAxis(8, 0, 4)
	mult := hist.UniformAxis(4, 0, 4)
	se := hist.New(kstar, mult)
	me := hist.New(kstar, mult)
	for i := 0; i < 8; i++ {
		for j := 0; j < 4; j++ {
			se.SetBin([]int{i, j}, 10, math.Sqrt(10))
			me.SetBin([]int{i, j}, 20, math.Sqrt(20))
		}
	}

	cfg := &Config{
		NormalizationRange: [2]float64{0, 4},
		KstarAxis:          0,
		ReweightAxis:       -1,
	}
	sel := Selection{
		{Lower: 0, Upper: 4, BinLo: 0, BinHi: 8, NoCut: true},
		{Lower: 1, Upper: 3, BinLo: 1, BinHi: 3},
	}
	job := Job{Rebin: 2, Selection: sel, Name: NodeName(2, sel)}

	node, err := BuildNode(se, me, cfg, job)
	require.NoError(t, err)

	require.Contains(t, node.SE, NameSE)
	require.Contains(t, node.SE, NameSEOriginal)
	require.Contains(t, node.SE, NameSENormalized)
	require.Contains(t, node.SE, NameSEWithCuts)
	require.Contains(t, node.ME, NameME)
	require.Contains(t, node.ME, NameMEOriginal)
	require.Contains(t, node.CF, NameCF)
	assert.NotContains(t, node.CF, NameCFReweighted, "reweighting disabled")

	// rebin 2: 8 -> 4 primary bins; cut keeps 2 of 4 mult bins
	assert.Equal(t, 4, node.SE[NameSE].Axes[0].NBins())
	assert.Equal(t, 2, node.SE[NameSEWithCuts].Axes[1].NBins())

	// the originals are rebinned but keep every multiplicity bin
	assert.Equal(t, 4, node.SE[NameSEOriginal].Axes[0].NBins())
	assert.Equal(t, 4, node.SE[NameSEOriginal].Axes[1].NBins())
	assert.Equal(t, 4, node.ME[NameMEOriginal].Axes[1].NBins())

	// flat inputs: CF is 1 everywhere
	for i, v := range node.CF[NameCF].Values {
		assert.InDelta(t, 1.0, v, 1e-12, "bin %d", i)
	}

	// inputs untouched
	assert.Equal(t, 10.0, se.BinContent([]int{0, 0}))
	assert.Equal(t, 8, se.Axes[0].NBins())
}

// TestBuildNodeReweighted enables the reweight axis and checks the
// additional entries plus the slice-integral property end to end.
func TestBuildNodeReweighted(t *testing.T) {
	kstar := hist.UniformAxis(4, 0, 4)
	mult := hist.UniformAxis(3, 0, 3)
	se := hist.New(kstar, mult)
	me := hist.New(kstar, mult)
	for i := 0; i < 4; i++ {
		for j := 0; j < 3; j++ {
			se.SetBin([]int{i, j}, float64(2+j), 1)
			me.SetBin([]int{i, j}, float64(10*(j+1)), 1)
		}
	}

	cfg := &Config{
		NormalizationRange: [2]float64{0, 4},
		KstarAxis:          0,
		ReweightAxis:       1,
	}
	sel := Selection{
		{Lower: 0, Upper: 4, BinLo: 0, BinHi: 4, NoCut: true},
		{Lower: 0, Upper: 3, BinLo: 0, BinHi: 3, NoCut: true},
	}
	job := Job{Rebin: 1, Selection: sel, Name: NodeName(1, sel)}

	node, err := BuildNode(se, me, cfg, job)
	require.NoError(t, err)

	require.Contains(t, node.SE, NameSEOriginal, "originals are stored even without cuts")
	require.Contains(t, node.ME, NameMEOriginal)
	require.Contains(t, node.SE, NameSE2D)
	require.Contains(t, node.ME, NameME2D)
	require.Contains(t, node.ME, NameME2DReweighted)
	require.Contains(t, node.ME, NameMEReweighted)
	require.Contains(t, node.ME, NameMERwNormalized)
	require.Contains(t, node.CF, NameCFReweighted)

	se2d := node.SE[NameSE2D]
	rw := node.ME[NameME2DReweighted]
	for j := 0; j < 3; j++ {
		var seInt, rwInt float64
		for i := 0; i < 4; i++ {
			seInt += se2d.BinContent([]int{i, j})
			rwInt += rw.BinContent([]int{i, j})
		}
		assert.InDelta(t, seInt, rwInt, 1e-9, "reweight slice %d", j)
	}
}
