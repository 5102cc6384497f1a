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
)

// Job is the atomic, parallel-safe unit of work: one rebin factor paired
// with one selection combination. Jobs are immutable once created and
// share no mutable state.
type Job struct {
	// Rebin is the coarsening factor applied to the primary axis.
	Rebin int

	// Selection holds the chosen sub-range per dimension.
	Selection Selection

	// Name is the deterministic output node name derived from Rebin and
	// Selection (see NodeName).
	Name string
}

// ExpandJobs pairs every rebin factor with every selection combination,
// producing the full job list. The rebin factor varies slowest, then
// combinations in their deterministic order. An empty rebin list behaves
// as a single identity pass.
//
// Inputs:
//   - rebins: Requested coarsening factors.
//   - combos: Cartesian product of per-dimension sub-ranges.
//   - primaryBins: Bin count of the primary axis before rebinning.
//
// Outputs:
//   - []Job: len(rebins) x combos.Count() jobs.
//   - error: ErrInvalidRebinFactor when a factor is non-positive or does
//     not evenly divide primaryBins.
func ExpandJobs(rebins []int, combos *CombinationSet, primaryBins int) ([]Job, error) {
	if len(rebins) == 0 {
		rebins = []int{1}
	}
	for _, f := range rebins {
		if f <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidRebinFactor, f)
		}
		if primaryBins%f != 0 {
			return nil, fmt.Errorf("%w: %d does not divide %d primary bins", ErrInvalidRebinFactor, f, primaryBins)
		}
	}

	jobs := make([]Job, 0, len(rebins)*combos.Count())
	for _, f := range rebins {
		for i := 0; i < combos.Count(); i++ {
			sel := combos.At(i)
			jobs = append(jobs, Job{
				Rebin:     f,
				Selection: sel,
				Name:      NodeName(f, sel),
			})
		}
	}
	return jobs, nil
}
