// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage provides the concrete histogram stores behind the
// sweep engine's capability interfaces: a JSON input reader for SE/ME
// distributions and a BadgerDB-backed output store for result nodes.
package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/AleutianAI/FemtoSweep/services/sweep/hist"
)

// InputFile is the on-disk input format: named multi-dimensional
// histograms keyed by their object path.
type InputFile struct {
	Objects map[string]*hist.Histogram `json:"objects"`
}

// ReadInputFile parses an input histogram file.
func ReadInputFile(path string) (*InputFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	var f InputFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse input file %s: %w", path, err)
	}
	for name, h := range f.Objects {
		if h == nil {
			return nil, fmt.Errorf("input object %q is null", name)
		}
		if err := h.Validate(); err != nil {
			return nil, fmt.Errorf("input object %q: %w", name, err)
		}
	}
	return &f, nil
}

// LoadHistogram returns one histogram from the file by object path.
func (f *InputFile) LoadHistogram(objectPath string) (*hist.Histogram, error) {
	h, ok := f.Objects[objectPath]
	if !ok {
		return nil, fmt.Errorf("object not found: is %q the correct path?", objectPath)
	}
	return h, nil
}

// LoadPair reads the same-event and mixed-event distributions from an
// input file in one call.
func LoadPair(path, pathSE, pathME string) (se, me *hist.Histogram, err error) {
	f, err := ReadInputFile(path)
	if err != nil {
		return nil, nil, err
	}
	if se, err = f.LoadHistogram(pathSE); err != nil {
		return nil, nil, fmt.Errorf("same event distribution: %w", err)
	}
	if me, err = f.LoadHistogram(pathME); err != nil {
		return nil, nil, fmt.Errorf("mixed event distribution: %w", err)
	}
	return se, me, nil
}
