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

	"github.com/AleutianAI/FemtoSweep/services/sweep/hist"
)

// SubRange is one selectable window on a single dimension: the requested
// bounds plus the bin-index interval [BinLo, BinHi) they snap to on the
// physical axis. NoCut marks the identity range of an uncut dimension,
// which is omitted from output names.
type SubRange struct {
	Lower float64
	Upper float64
	BinLo int
	BinHi int
	NoCut bool
}

// PlanDimension expands one dimension's boundary list into its ordered
// sub-ranges on the given physical axis.
//
// An empty boundary list yields exactly one NoCut sub-range spanning the
// whole axis. k+1 strictly increasing boundaries yield k contiguous
// half-open sub-ranges [b_i, b_i+1). Bounds snap to bin edges: the lower
// bound to its containing bin, the upper bound with the upper-edge rule
// (a bound exactly on a bin's lower edge selects the bin below).
//
// Outputs:
//   - []SubRange: Ordered sub-ranges, one per boundary interval.
//   - error: ErrInvalidRange when a boundary lies outside the axis
//     domain or boundaries are not strictly increasing.
func PlanDimension(boundaries []float64, axis hist.Axis) ([]SubRange, error) {
	if len(boundaries) == 0 {
		return []SubRange{{
			Lower: axis.Min(),
			Upper: axis.Max(),
			BinLo: 0,
			BinHi: axis.NBins(),
			NoCut: true,
		}}, nil
	}
	if len(boundaries) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 boundaries, got %d", ErrInvalidRange, len(boundaries))
	}

	for i, b := range boundaries {
		if b < axis.Min() || b > axis.Max() {
			return nil, fmt.Errorf("%w: boundary %g outside axis domain [%g,%g]",
				ErrInvalidRange, b, axis.Min(), axis.Max())
		}
		if i > 0 && b <= boundaries[i-1] {
			return nil, fmt.Errorf("%w: boundaries not strictly increasing at index %d (%g <= %g)",
				ErrInvalidRange, i, b, boundaries[i-1])
		}
	}

	ranges := make([]SubRange, 0, len(boundaries)-1)
	for i := 0; i < len(boundaries)-1; i++ {
		lower := boundaries[i]
		upper := boundaries[i+1]
		binLo := axis.FindBin(lower)
		binHi := axis.FindBinUpperEdge(upper)
		if binLo < 0 || binHi < 0 || binHi < binLo {
			return nil, fmt.Errorf("%w: range [%g,%g) snaps to empty bin interval", ErrInvalidRange, lower, upper)
		}
		ranges = append(ranges, SubRange{
			Lower: lower,
			Upper: upper,
			BinLo: binLo,
			BinHi: binHi + 1,
		})
	}
	return ranges, nil
}
