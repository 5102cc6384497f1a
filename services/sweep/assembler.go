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
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/AleutianAI/FemtoSweep/services/sweep/hist"
)

// Node is one job's assembled output subtree: same-event, mixed-event
// and correlation-function entries keyed by their histogram names.
type Node struct {
	Name string                     `json:"name"`
	SE   map[string]*hist.Histogram `json:"se"`
	ME   map[string]*hist.Histogram `json:"me"`
	CF   map[string]*CorrFunc       `json:"cf"`
}

// Histogram names within a node's SE/ME/CF subtrees.
const (
	NameSE             = "SE"
	NameSEOriginal     = "SE_Original"
	NameSENormalized   = "SE_Normalized"
	NameSEWithCuts     = "SE_with_Cuts"
	NameSE2D           = "SE_2d"
	NameME             = "ME"
	NameMEOriginal     = "ME_Original"
	NameMENormalized   = "ME_Normalized"
	NameMEWithCuts     = "ME_with_Cuts"
	NameME2D           = "ME_2d"
	NameME2DReweighted = "ME_2d_Reweighted"
	NameMEReweighted   = "ME_Reweighted"
	NameMERwNormalized = "ME_Reweighted_Normalized"
	NameCF             = "CF"
	NameCFReweighted   = "CF_Reweighted"
)

// NodeWriter is the output store capability the scheduler writes
// through. Implementations must support concurrent WriteNode calls to
// disjoint paths.
type NodeWriter interface {
	// WriteNode persists one node under the given path.
	WriteNode(ctx context.Context, path string, node *Node) error

	// Reset removes every node under the given path prefix. Called once
	// before a run so a re-run replaces the previous subtree.
	Reset(ctx context.Context, prefix string) error
}

// NodeName derives the deterministic output name for a (rebin factor,
// selection) pair. Uncut dimensions are omitted; cut dimensions
// contribute their index and bounds:
//
//	Rebin_4
//	Rebin_4_Dim_1-0.5-1.5_Dim_2-3-4
//
// The name is a pure function of job identity, which is what makes
// parallel output placement collision-free.
func NodeName(rebin int, sel Selection) string {
	var b strings.Builder
	b.WriteString("Rebin_")
	b.WriteString(strconv.Itoa(rebin))
	for dim, r := range sel {
		if r.NoCut {
			continue
		}
		b.WriteString("_Dim_")
		b.WriteString(strconv.Itoa(dim))
		b.WriteByte('-')
		b.WriteString(strconv.FormatFloat(r.Lower, 'g', -1, 64))
		b.WriteByte('-')
		b.WriteString(strconv.FormatFloat(r.Upper, 'g', -1, 64))
	}
	return b.String()
}

// NodePath joins the run's output root with a job's node name.
func NodePath(outputDir, name string) string {
	return outputDir + "/" + name
}

// CheckCollisions verifies that no two jobs resolve to the same output
// path. A collision means the naming scheme lost information, which is
// an implementation defect, so the caller must abort the whole run.
func CheckCollisions(jobs []Job) error {
	seen := make(map[string]int, len(jobs))
	for i, job := range jobs {
		if prev, ok := seen[job.Name]; ok {
			return fmt.Errorf("%w: jobs %d and %d both resolve to %q", ErrOutputCollision, prev, i, job.Name)
		}
		seen[job.Name] = i
	}
	return nil
}
