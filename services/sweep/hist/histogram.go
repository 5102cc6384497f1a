// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hist provides dense multi-dimensional histograms and the algebra
// the sweep engine needs: slicing, rebinning, projection, reweighting and
// window normalization.
//
// # Data Model
//
// A Histogram is a dense row-major array over N axes (axis 0 varies
// slowest). Each bin carries a content value and a squared-error term
// (sum of squared weights), so error propagation under bin merges is
// exact: merged content = sum of contents, merged squared error = sum of
// squared errors.
//
// # Ownership Model
//
// Operations never mutate their receiver unless documented otherwise.
// Slice, Rebin and the projections return new histograms; Normalize and
// Scale mutate in place and are documented as such.
//
// # Thread Safety
//
// A Histogram is NOT safe for concurrent mutation. Read-only access from
// multiple goroutines is safe, which is what the sweep scheduler relies
// on: every job clones the shared input pair before touching it.
package hist

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Sentinel errors for histogram operations.
var (
	// ErrAxisOutOfRange is returned when an axis index does not exist in
	// the histogram.
	ErrAxisOutOfRange = errors.New("axis index out of range")

	// ErrBinOutOfRange is returned when a bin index interval does not fit
	// the axis it addresses.
	ErrBinOutOfRange = errors.New("bin index out of range")

	// ErrRebinIncompatible is returned when a rebin factor does not evenly
	// divide the axis bin count.
	ErrRebinIncompatible = errors.New("rebin factor incompatible with bin count")

	// ErrRankMismatch is returned when an operation requires a specific
	// dimensionality (e.g. Reweight2D needs rank-2 histograms).
	ErrRankMismatch = errors.New("histogram rank mismatch")

	// ErrEmptyIntegral is returned by Normalize when the window integral
	// is zero and no scale factor can be derived.
	ErrEmptyIntegral = errors.New("integral in normalization window is zero")
)

// Axis is one histogram dimension, described by its bin edges.
// An axis with k+1 edges has k bins; edges must be strictly increasing.
type Axis struct {
	Edges []float64 `json:"edges"`
}

// UniformAxis returns an axis with n equal-width bins spanning [lo, hi).
func UniformAxis(n int, lo, hi float64) Axis {
	edges := make([]float64, n+1)
	width := (hi - lo) / float64(n)
	for i := 0; i <= n; i++ {
		edges[i] = lo + float64(i)*width
	}
	edges[n] = hi
	return Axis{Edges: edges}
}

// NBins returns the number of bins on the axis.
func (a Axis) NBins() int { return len(a.Edges) - 1 }

// Min returns the lower edge of the first bin.
func (a Axis) Min() float64 { return a.Edges[0] }

// Max returns the upper edge of the last bin.
func (a Axis) Max() float64 { return a.Edges[len(a.Edges)-1] }

// Width returns the width of bin i.
func (a Axis) Width(i int) float64 { return a.Edges[i+1] - a.Edges[i] }

// FindBin returns the zero-based bin index containing v, where bin i
// spans [Edges[i], Edges[i+1]). A value exactly on the axis upper edge
// belongs to the last bin. Returns -1 when v lies outside the axis.
func (a Axis) FindBin(v float64) int {
	n := a.NBins()
	if v < a.Edges[0] || v > a.Edges[n] {
		return -1
	}
	if v == a.Edges[n] {
		return n - 1
	}
	// sort.SearchFloat64s returns the first edge >= v.
	i := sort.SearchFloat64s(a.Edges, v)
	if i < len(a.Edges) && a.Edges[i] == v {
		return i
	}
	return i - 1
}

// FindBinUpperEdge locates the bin for the upper bound of a cut window.
// A value lying exactly on a bin's lower edge snaps to the bin below, so
// a cut [1.0, 2.0) over unit bins selects exactly one bin instead of
// leaking into the next. The first bin never snaps below.
func (a Axis) FindBinUpperEdge(v float64) int {
	b := a.FindBin(v)
	if b > 0 && v == a.Edges[b] {
		b--
	}
	return b
}

// Validate checks the axis invariants: at least one bin, strictly
// increasing edges.
func (a Axis) Validate() error {
	if len(a.Edges) < 2 {
		return fmt.Errorf("axis needs at least 2 edges, got %d", len(a.Edges))
	}
	for i := 1; i < len(a.Edges); i++ {
		if a.Edges[i] <= a.Edges[i-1] {
			return fmt.Errorf("axis edges not strictly increasing at index %d (%g <= %g)",
				i, a.Edges[i], a.Edges[i-1])
		}
	}
	return nil
}

// Histogram is a dense N-dimensional histogram. Counts and SumW2 are
// row-major with axis 0 varying slowest.
type Histogram struct {
	Axes   []Axis    `json:"axes"`
	Counts []float64 `json:"counts"`
	SumW2  []float64 `json:"sumw2"`
}

// New returns an empty histogram over the given axes.
func New(axes ...Axis) *Histogram {
	n := 1
	for _, a := range axes {
		n *= a.NBins()
	}
	cp := make([]Axis, len(axes))
	copy(cp, axes)
	return &Histogram{
		Axes:   cp,
		Counts: make([]float64, n),
		SumW2:  make([]float64, n),
	}
}

// Rank returns the number of dimensions.
func (h *Histogram) Rank() int { return len(h.Axes) }

// Len returns the total number of bins.
func (h *Histogram) Len() int { return len(h.Counts) }

// Clone returns a deep copy.
func (h *Histogram) Clone() *Histogram {
	out := New(h.Axes...)
	copy(out.Counts, h.Counts)
	copy(out.SumW2, h.SumW2)
	return out
}

// Index converts a per-axis bin coordinate into the flat array index.
// Panics on rank mismatch; callers own coordinate validity.
func (h *Histogram) Index(coord []int) int {
	if len(coord) != len(h.Axes) {
		panic("hist: coordinate rank mismatch")
	}
	idx := 0
	for d, c := range coord {
		idx = idx*h.Axes[d].NBins() + c
	}
	return idx
}

// Fill adds weight w at the given axis values. Values outside any axis
// are dropped (no under/overflow bins).
func (h *Histogram) Fill(w float64, values ...float64) {
	coord := make([]int, len(h.Axes))
	for d, v := range values {
		b := h.Axes[d].FindBin(v)
		if b < 0 {
			return
		}
		coord[d] = b
	}
	i := h.Index(coord)
	h.Counts[i] += w
	h.SumW2[i] += w * w
}

// SetBin sets content and error for one bin coordinate.
func (h *Histogram) SetBin(coord []int, content, err float64) {
	i := h.Index(coord)
	h.Counts[i] = content
	h.SumW2[i] = err * err
}

// BinContent returns the content at the coordinate.
func (h *Histogram) BinContent(coord []int) float64 {
	return h.Counts[h.Index(coord)]
}

// BinError returns the statistical error at the coordinate.
func (h *Histogram) BinError(coord []int) float64 {
	return math.Sqrt(h.SumW2[h.Index(coord)])
}

// Scale multiplies all contents by f in place. Squared errors scale with
// f² so relative errors are preserved.
func (h *Histogram) Scale(f float64) {
	for i := range h.Counts {
		h.Counts[i] *= f
		h.SumW2[i] *= f * f
	}
}

// Validate checks every axis and that the flat arrays match the axis
// product.
func (h *Histogram) Validate() error {
	n := 1
	for d, a := range h.Axes {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("axis %d: %w", d, err)
		}
		n *= a.NBins()
	}
	if len(h.Counts) != n || len(h.SumW2) != n {
		return fmt.Errorf("array size %d/%d does not match axis product %d",
			len(h.Counts), len(h.SumW2), n)
	}
	return nil
}

// strides returns the flat-index stride per axis (axis 0 slowest).
func (h *Histogram) strides() []int {
	s := make([]int, len(h.Axes))
	acc := 1
	for d := len(h.Axes) - 1; d >= 0; d-- {
		s[d] = acc
		acc *= h.Axes[d].NBins()
	}
	return s
}
