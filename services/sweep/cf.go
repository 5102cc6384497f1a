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
	"math"

	"github.com/AleutianAI/FemtoSweep/services/sweep/hist"
)

// CorrFunc is the correlation function for one job: per-bin normalized
// SE/ME ratio along the primary axis with propagated statistical
// uncertainty. Bins where either input content is zero carry value 0
// and an Undefined flag, so downstream statistics can tell them apart
// from a well-measured zero.
type CorrFunc struct {
	Axis      hist.Axis `json:"axis"`
	Values    []float64 `json:"values"`
	Errors    []float64 `json:"errors"`
	Undefined []bool    `json:"undefined"`

	// Job records the originating (rebin factor, selection) pair for
	// output naming and failure diagnostics.
	Job Job `json:"job"`
}

// ComputeCF computes the correlation function from a 1-D same-event /
// mixed-event pair that has already been sliced and rebinned for the
// job.
//
// Description:
//
//	The normalization window snaps to bin edges with the same rule as
//	the dimension planner. The scale factor is a = normME / normSE over
//	the snapped window, and every bin i gets
//
//	    CF[i]    = a * SE[i] / ME[i]            (ME[i] > 0)
//	    sigma[i] = CF[i] * sqrt((sSE/SE)^2 + (sME/ME)^2)
//
//	assuming independent Poisson counting errors. Bins with ME[i] == 0
//	are flagged undefined rather than silently zero, and bins with
//	SE[i] == 0 are flagged too: the ratio there is a genuine zero but
//	no uncertainty can be derived from a zero count.
//
// Outputs:
//   - *CorrFunc: Correlation function carrying job provenance.
//   - error: ErrEmptyNormalizationRange when either window integral is
//     zero, or a binning mismatch between SE and ME.
func ComputeCF(se, me *hist.Histogram, normLo, normHi float64, job Job) (*CorrFunc, error) {
	if se.Rank() != 1 || me.Rank() != 1 {
		return nil, fmt.Errorf("correlation input must be 1-D (got rank %d and %d)", se.Rank(), me.Rank())
	}
	n := se.Axes[0].NBins()
	if me.Axes[0].NBins() != n {
		return nil, fmt.Errorf("SE/ME binning differs: %d vs %d bins", n, me.Axes[0].NBins())
	}

	ax := se.Axes[0]
	binLo := ax.FindBin(normLo)
	binHi := ax.FindBinUpperEdge(normHi)
	if binLo < 0 || binHi < 0 {
		return nil, fmt.Errorf("%w: window [%g,%g] outside axis [%g,%g]",
			ErrInvalidRange, normLo, normHi, ax.Min(), ax.Max())
	}

	normSE, err := se.Integral(binLo, binHi+1)
	if err != nil {
		return nil, err
	}
	normME, err := me.Integral(binLo, binHi+1)
	if err != nil {
		return nil, err
	}
	if normSE == 0 || normME == 0 {
		return nil, fmt.Errorf("%w: normSE=%g normME=%g in [%g,%g]",
			ErrEmptyNormalizationRange, normSE, normME, normLo, normHi)
	}
	alpha := normME / normSE

	cf := &CorrFunc{
		Axis:      ax,
		Values:    make([]float64, n),
		Errors:    make([]float64, n),
		Undefined: make([]bool, n),
		Job:       job,
	}
	for i := 0; i < n; i++ {
		seC, meC := se.Counts[i], me.Counts[i]
		if meC <= 0 {
			cf.Undefined[i] = true
			continue
		}
		if seC <= 0 {
			// The ratio is a genuine zero but its uncertainty is not
			// derivable from a zero count, so the bin stays flagged.
			cf.Undefined[i] = true
			continue
		}
		v := alpha * seC / meC
		cf.Values[i] = v
		relSE := math.Sqrt(se.SumW2[i]) / seC
		relME := math.Sqrt(me.SumW2[i]) / meC
		cf.Errors[i] = v * math.Sqrt(relSE*relSE+relME*relME)
	}
	return cf, nil
}

// BuildNode runs the full per-job pipeline against the immutable input
// pair: rebin the primary axis, apply the job's cuts, project, reweight
// when configured, compute the correlation function(s) and assemble the
// output node.
//
// Cut windows are re-snapped to bin edges after rebinning, so the bin
// intervals planned against the original axes cannot drift.
func BuildNode(seIn, meIn *hist.Histogram, cfg *Config, job Job) (*Node, error) {
	se, err := seIn.Rebin(cfg.KstarAxis, job.Rebin)
	if err != nil {
		return nil, fmt.Errorf("rebin SE: %w", err)
	}
	me, err := meIn.Rebin(cfg.KstarAxis, job.Rebin)
	if err != nil {
		return nil, fmt.Errorf("rebin ME: %w", err)
	}

	node := &Node{
		Name: job.Name,
		SE:   make(map[string]*hist.Histogram),
		ME:   make(map[string]*hist.Histogram),
		CF:   make(map[string]*CorrFunc),
	}
	// The rebinned pair before cuts is kept in every node so a cut can
	// be audited against the distribution it was taken from.
	node.SE[NameSEOriginal] = se
	node.ME[NameMEOriginal] = me

	cut := false
	for dim, r := range job.Selection {
		if r.NoCut {
			continue
		}
		cut = true
		binLo := se.Axes[dim].FindBin(r.Lower)
		binHi := se.Axes[dim].FindBinUpperEdge(r.Upper)
		if binLo < 0 || binHi < binLo {
			return nil, fmt.Errorf("%w: cut [%g,%g) on dimension %d", ErrInvalidRange, r.Lower, r.Upper, dim)
		}
		if se, err = se.Slice(dim, binLo, binHi+1); err != nil {
			return nil, fmt.Errorf("cut SE dimension %d: %w", dim, err)
		}
		if me, err = me.Slice(dim, binLo, binHi+1); err != nil {
			return nil, fmt.Errorf("cut ME dimension %d: %w", dim, err)
		}
	}
	if cut {
		node.SE[NameSEWithCuts] = se
		node.ME[NameMEWithCuts] = me
	}

	se1d, err := se.Project1D(cfg.KstarAxis)
	if err != nil {
		return nil, fmt.Errorf("project SE: %w", err)
	}
	me1d, err := me.Project1D(cfg.KstarAxis)
	if err != nil {
		return nil, fmt.Errorf("project ME: %w", err)
	}
	node.SE[NameSE] = se1d
	node.ME[NameME] = me1d

	normLo, normHi := cfg.NormalizationRange[0], cfg.NormalizationRange[1]

	cf, err := ComputeCF(se1d, me1d, normLo, normHi, job)
	if err != nil {
		return nil, err
	}
	node.CF[NameCF] = cf

	if cfg.ReweightAxis >= 0 {
		se2d, err := se.Project2D(cfg.KstarAxis, cfg.ReweightAxis)
		if err != nil {
			return nil, fmt.Errorf("project SE 2d: %w", err)
		}
		me2d, err := me.Project2D(cfg.KstarAxis, cfg.ReweightAxis)
		if err != nil {
			return nil, fmt.Errorf("project ME 2d: %w", err)
		}
		me2dRw, err := hist.Reweight2D(se2d, me2d)
		if err != nil {
			return nil, fmt.Errorf("reweight ME: %w", err)
		}
		me1dRw, err := me2dRw.Project1D(0)
		if err != nil {
			return nil, fmt.Errorf("project reweighted ME: %w", err)
		}
		node.SE[NameSE2D] = se2d
		node.ME[NameME2D] = me2d
		node.ME[NameME2DReweighted] = me2dRw
		node.ME[NameMEReweighted] = me1dRw

		cfRw, err := ComputeCF(se1d, me1dRw, normLo, normHi, job)
		if err != nil {
			return nil, fmt.Errorf("reweighted CF: %w", err)
		}
		node.CF[NameCFReweighted] = cfRw

		meRwNorm := me1dRw.Clone()
		if err := meRwNorm.Normalize(normLo, normHi); err != nil {
			return nil, fmt.Errorf("normalize reweighted ME: %w", err)
		}
		node.ME[NameMERwNormalized] = meRwNorm
	}

	seNorm := se1d.Clone()
	if err := seNorm.Normalize(normLo, normHi); err != nil {
		return nil, fmt.Errorf("normalize SE: %w", err)
	}
	node.SE[NameSENormalized] = seNorm

	meNorm := me1d.Clone()
	if err := meNorm.Normalize(normLo, normHi); err != nil {
		return nil, fmt.Errorf("normalize ME: %w", err)
	}
	node.ME[NameMENormalized] = meNorm

	return node, nil
}
