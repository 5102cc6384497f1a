// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sweep implements the combinatorial correlation-function sweep:
// it expands a sparse per-dimension cut specification and a rebin list
// into a full job set, computes a normalized same-event / mixed-event
// ratio with propagated uncertainty for every job, and merges each
// result into a deterministically named output subtree.
//
// # Pipeline
//
//	Config → PlanDimension (per axis) → Combinations → ExpandJobs →
//	Scheduler → per job: rebin → cut → project → (reweight) → CF →
//	NodeWriter
//
// # Commutativity
//
// Every job reads only from an immutable input snapshot and writes to a
// path derived solely from its own (rebin factor, selection) identity.
// Jobs therefore commute: sequential and parallel execution produce an
// identical merged output. This is the property the parallel scheduler
// relies on instead of locking the output store.
//
// # Lifecycle
//
//  1. Load and validate a Config
//  2. Build a Sweep with NewSweep()
//  3. Run it with Run() (sequential) or the configured worker pool
//  4. Inspect the Report for per-job outcomes
package sweep

import "errors"

// Sentinel errors for sweep validation and execution. Validation errors
// (ErrInvalidRange, ErrInvalidRebinFactor) abort the run before any job
// executes; per-job errors are isolated in parallel mode and fail fast
// in sequential mode. ErrOutputCollision always aborts.
var (
	// ErrInvalidRange is returned when a cut boundary lies outside the
	// axis domain or boundaries are not strictly increasing.
	ErrInvalidRange = errors.New("invalid cut range")

	// ErrInvalidRebinFactor is returned when a rebin factor is not a
	// positive integer or does not evenly divide the primary axis bin
	// count.
	ErrInvalidRebinFactor = errors.New("invalid rebin factor")

	// ErrEmptyNormalizationRange is returned when the same-event or
	// mixed-event integral over the normalization window is zero, leaving
	// the scale factor undefined.
	ErrEmptyNormalizationRange = errors.New("empty normalization range")

	// ErrOutputCollision is returned when two distinct jobs resolve to
	// the same output path. This signals a naming-scheme defect, never a
	// runtime condition, and always aborts the run.
	ErrOutputCollision = errors.New("output path collision")

	// ErrWrite is returned when the output store fails to persist a
	// job's node.
	ErrWrite = errors.New("output write failed")
)
