// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hist

import (
	"fmt"
)

// Slice restricts one axis to the bin interval [lo, hi) and returns the
// restricted histogram. Rank is preserved; bins outside the interval are
// dropped, not zeroed.
//
// Inputs:
//   - axis: Axis index to restrict.
//   - lo, hi: Bin index interval, inclusive-exclusive.
//
// Outputs:
//   - *Histogram: New histogram whose axis has hi-lo bins.
//   - error: ErrAxisOutOfRange or ErrBinOutOfRange.
func (h *Histogram) Slice(axis, lo, hi int) (*Histogram, error) {
	if axis < 0 || axis >= h.Rank() {
		return nil, fmt.Errorf("%w: %d (rank %d)", ErrAxisOutOfRange, axis, h.Rank())
	}
	nb := h.Axes[axis].NBins()
	if lo < 0 || hi > nb || lo >= hi {
		return nil, fmt.Errorf("%w: [%d,%d) on axis %d with %d bins", ErrBinOutOfRange, lo, hi, axis, nb)
	}

	axes := make([]Axis, h.Rank())
	copy(axes, h.Axes)
	axes[axis] = Axis{Edges: append([]float64(nil), h.Axes[axis].Edges[lo:hi+1]...)}
	out := New(axes...)

	src := h.strides()
	coord := make([]int, h.Rank())
	for i, c := range h.Counts {
		rem := i
		for d := range coord {
			coord[d] = rem / src[d]
			rem %= src[d]
		}
		if coord[axis] < lo || coord[axis] >= hi {
			continue
		}
		coord[axis] -= lo
		j := out.Index(coord)
		out.Counts[j] = c
		out.SumW2[j] = h.SumW2[i]
		coord[axis] += lo
	}
	return out, nil
}

// Rebin merges adjacent bins on one axis by an integer factor. Merged
// content is the sum of contents; merged squared error is the sum of
// squared errors, which keeps Poisson statistics exact under the merge.
//
// Outputs:
//   - *Histogram: New histogram with nb/factor bins on the axis.
//   - error: ErrAxisOutOfRange, or ErrRebinIncompatible when factor does
//     not evenly divide the axis bin count.
func (h *Histogram) Rebin(axis, factor int) (*Histogram, error) {
	if axis < 0 || axis >= h.Rank() {
		return nil, fmt.Errorf("%w: %d (rank %d)", ErrAxisOutOfRange, axis, h.Rank())
	}
	if factor <= 0 {
		return nil, fmt.Errorf("%w: factor %d", ErrRebinIncompatible, factor)
	}
	nb := h.Axes[axis].NBins()
	if nb%factor != 0 {
		return nil, fmt.Errorf("%w: factor %d, %d bins on axis %d", ErrRebinIncompatible, factor, nb, axis)
	}

	edges := make([]float64, 0, nb/factor+1)
	for i := 0; i <= nb; i += factor {
		edges = append(edges, h.Axes[axis].Edges[i])
	}
	axes := make([]Axis, h.Rank())
	copy(axes, h.Axes)
	axes[axis] = Axis{Edges: edges}
	out := New(axes...)

	src := h.strides()
	coord := make([]int, h.Rank())
	for i, c := range h.Counts {
		rem := i
		for d := range coord {
			coord[d] = rem / src[d]
			rem %= src[d]
		}
		coord[axis] /= factor
		j := out.Index(coord)
		out.Counts[j] += c
		out.SumW2[j] += h.SumW2[i]
	}
	return out, nil
}

// Project1D sums the histogram over all axes except the given one and
// returns the resulting 1-D histogram.
func (h *Histogram) Project1D(axis int) (*Histogram, error) {
	if axis < 0 || axis >= h.Rank() {
		return nil, fmt.Errorf("%w: %d (rank %d)", ErrAxisOutOfRange, axis, h.Rank())
	}
	out := New(h.Axes[axis])
	src := h.strides()
	for i, c := range h.Counts {
		b := (i / src[axis]) % h.Axes[axis].NBins()
		out.Counts[b] += c
		out.SumW2[b] += h.SumW2[i]
	}
	return out, nil
}

// Project2D sums the histogram onto the plane spanned by axisX and axisY
// and returns a rank-2 histogram whose axis 0 is axisX and axis 1 is
// axisY.
func (h *Histogram) Project2D(axisX, axisY int) (*Histogram, error) {
	if axisX < 0 || axisX >= h.Rank() {
		return nil, fmt.Errorf("%w: %d (rank %d)", ErrAxisOutOfRange, axisX, h.Rank())
	}
	if axisY < 0 || axisY >= h.Rank() {
		return nil, fmt.Errorf("%w: %d (rank %d)", ErrAxisOutOfRange, axisY, h.Rank())
	}
	if axisX == axisY {
		return nil, fmt.Errorf("%w: projection axes must differ", ErrAxisOutOfRange)
	}
	out := New(h.Axes[axisX], h.Axes[axisY])
	src := h.strides()
	coord := make([]int, 2)
	for i, c := range h.Counts {
		coord[0] = (i / src[axisX]) % h.Axes[axisX].NBins()
		coord[1] = (i / src[axisY]) % h.Axes[axisY].NBins()
		j := out.Index(coord)
		out.Counts[j] += c
		out.SumW2[j] += h.SumW2[i]
	}
	return out, nil
}

// Reweight2D rescales each reweight-axis slice of a mixed-event
// distribution so that its primary-axis integral matches the same-event
// distribution's. Both inputs must be rank-2 with axis 0 the primary
// axis and axis 1 the reweight axis, with identical binning. Slices
// where either integral is zero are left empty.
//
// Outputs:
//   - *Histogram: Reweighted copy of me.
//   - error: ErrRankMismatch when ranks or binnings differ.
func Reweight2D(se, me *Histogram) (*Histogram, error) {
	if se.Rank() != 2 || me.Rank() != 2 {
		return nil, fmt.Errorf("%w: Reweight2D needs rank-2 inputs (got %d and %d)", ErrRankMismatch, se.Rank(), me.Rank())
	}
	for d := 0; d < 2; d++ {
		if se.Axes[d].NBins() != me.Axes[d].NBins() {
			return nil, fmt.Errorf("%w: axis %d has %d vs %d bins", ErrRankMismatch, d, se.Axes[d].NBins(), me.Axes[d].NBins())
		}
	}

	nx := se.Axes[0].NBins()
	ny := se.Axes[1].NBins()
	out := New(me.Axes...)

	coord := make([]int, 2)
	for j := 0; j < ny; j++ {
		var seInt, meInt float64
		coord[1] = j
		for i := 0; i < nx; i++ {
			coord[0] = i
			seInt += se.Counts[se.Index(coord)]
			meInt += me.Counts[me.Index(coord)]
		}
		if seInt <= 0 || meInt <= 0 {
			continue
		}
		f := seInt / meInt
		for i := 0; i < nx; i++ {
			coord[0] = i
			k := me.Index(coord)
			out.Counts[k] = me.Counts[k] * f
			out.SumW2[k] = me.SumW2[k] * f * f
		}
	}
	return out, nil
}

// Integral sums bin contents of a 1-D histogram over the bin interval
// [lo, hi).
func (h *Histogram) Integral(lo, hi int) (float64, error) {
	if h.Rank() != 1 {
		return 0, fmt.Errorf("%w: Integral needs a 1-D histogram (rank %d)", ErrRankMismatch, h.Rank())
	}
	if lo < 0 || hi > h.Axes[0].NBins() || lo >= hi {
		return 0, fmt.Errorf("%w: [%d,%d) with %d bins", ErrBinOutOfRange, lo, hi, h.Axes[0].NBins())
	}
	var sum float64
	for i := lo; i < hi; i++ {
		sum += h.Counts[i]
	}
	return sum, nil
}

// IntegralWidth sums content times bin width of a 1-D histogram over the
// bin interval [lo, hi).
func (h *Histogram) IntegralWidth(lo, hi int) (float64, error) {
	if h.Rank() != 1 {
		return 0, fmt.Errorf("%w: IntegralWidth needs a 1-D histogram (rank %d)", ErrRankMismatch, h.Rank())
	}
	if lo < 0 || hi > h.Axes[0].NBins() || lo >= hi {
		return 0, fmt.Errorf("%w: [%d,%d) with %d bins", ErrBinOutOfRange, lo, hi, h.Axes[0].NBins())
	}
	var sum float64
	for i := lo; i < hi; i++ {
		sum += h.Counts[i] * h.Axes[0].Width(i)
	}
	return sum, nil
}

// Normalize scales a 1-D histogram in place so that its width-weighted
// integral over the window [lo, hi] equals the window width. The window
// bounds snap to bin edges with the upper-edge rule (FindBinUpperEdge).
//
// Outputs:
//   - error: ErrRankMismatch, ErrBinOutOfRange for a window outside the
//     axis, or ErrEmptyIntegral when the window integral is zero.
func (h *Histogram) Normalize(lo, hi float64) error {
	if h.Rank() != 1 {
		return fmt.Errorf("%w: Normalize needs a 1-D histogram (rank %d)", ErrRankMismatch, h.Rank())
	}
	ax := h.Axes[0]
	binLo := ax.FindBin(lo)
	binHi := ax.FindBinUpperEdge(hi)
	if binLo < 0 || binHi < 0 {
		return fmt.Errorf("%w: window [%g,%g] outside axis [%g,%g]", ErrBinOutOfRange, lo, hi, ax.Min(), ax.Max())
	}
	integral, err := h.IntegralWidth(binLo, binHi+1)
	if err != nil {
		return err
	}
	if integral == 0 {
		return fmt.Errorf("%w: window [%g,%g]", ErrEmptyIntegral, lo, hi)
	}
	lowerEdge := ax.Edges[binLo]
	upperEdge := ax.Edges[binHi+1]
	h.Scale((upperEdge - lowerEdge) / integral)
	return nil
}
