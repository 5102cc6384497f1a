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

// Selection is one chosen sub-range per dimension, in dimension order.
// Two selections are distinct if they differ in at least one dimension.
type Selection []SubRange

// CombinationSet is the cartesian product of per-dimension sub-range
// sets. Elements are addressed by a mixed-radix index and computed on
// demand, so the set is never materialized beyond the caller's needs.
//
// Order is deterministic: dimension 0 varies slowest, the last dimension
// fastest. Output naming depends only on selection content, but logs and
// tests rely on this order being stable.
type CombinationSet struct {
	dims  [][]SubRange
	count int
}

// Combinations builds the combination set from one PlanDimension output
// per dimension. Dimensions with no cut contribute exactly one identity
// choice, so the all-uncut case yields a single combination.
func Combinations(dims [][]SubRange) *CombinationSet {
	count := 1
	for _, d := range dims {
		count *= len(d)
	}
	return &CombinationSet{dims: dims, count: count}
}

// Count returns the product of per-dimension sub-range counts.
func (s *CombinationSet) Count() int { return s.count }

// At returns the i-th selection in deterministic order. Panics when i is
// out of [0, Count()).
func (s *CombinationSet) At(i int) Selection {
	if i < 0 || i >= s.count {
		panic("sweep: combination index out of range")
	}
	sel := make(Selection, len(s.dims))
	for d := len(s.dims) - 1; d >= 0; d-- {
		n := len(s.dims[d])
		sel[d] = s.dims[d][i%n]
		i /= n
	}
	return sel
}

// All materializes every selection in order. Intended for small sweeps
// and tests; Count() can be checked first.
func (s *CombinationSet) All() []Selection {
	out := make([]Selection, s.count)
	for i := 0; i < s.count; i++ {
		out[i] = s.At(i)
	}
	return out
}
