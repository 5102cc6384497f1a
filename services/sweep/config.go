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
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the validated sweep configuration. It replaces the loosely
// typed option dictionary of earlier analysis scripts with explicit
// fields validated once at load time.
type Config struct {
	// InputFile is the path to the input histogram file.
	InputFile string `yaml:"input_file" validate:"required"`

	// PathSE is the object path of the same-event distribution inside
	// the input file.
	PathSE string `yaml:"path_se" validate:"required"`

	// PathME is the object path of the mixed-event distribution.
	PathME string `yaml:"path_me" validate:"required"`

	// OutputPath is the directory of the output store.
	OutputPath string `yaml:"output_path" validate:"required"`

	// OutputDir is the root node name all sweep results are written
	// under. Re-running replaces the previous subtree.
	OutputDir string `yaml:"output_dir" validate:"required"`

	// NormalizationRange is the primary-axis window [lower, upper] used
	// to derive the SE/ME scale factor.
	NormalizationRange [2]float64 `yaml:"normalization_range"`

	// RebinFactors lists the coarsening factors applied to the primary
	// axis, one sweep pass each. Empty behaves as [1].
	RebinFactors []int `yaml:"rebin_factors" validate:"dive,gt=0"`

	// KstarAxis is the index of the primary (kstar) axis.
	KstarAxis int `yaml:"kstar_axis" validate:"gte=0"`

	// ReweightAxis is the index of the axis used to reweight the mixed
	// event distribution. Set to -1 to disable; 0 is a valid axis.
	ReweightAxis int `yaml:"reweight_axis"`

	// Cuts holds one boundary list per histogram dimension. An empty
	// list means no cut on that dimension; k+1 boundaries produce k
	// contiguous sub-ranges.
	Cuts [][]float64 `yaml:"cuts"`

	// Workers is the parallel worker pool size. Zero means available
	// hardware parallelism. Ignored in sequential mode.
	Workers int `yaml:"workers" validate:"gte=0"`
}

// DefaultConfig returns a Config with reweighting disabled and a single
// identity rebin pass.
func DefaultConfig() Config {
	return Config{
		ReweightAxis: -1,
		RebinFactors: []int{1},
	}
}

// LoadConfig reads and validates a yaml configuration file. Fields
// omitted from the file keep their DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and cross-field invariants. Cut
// boundaries are only checked for monotonicity here; domain checks need
// the input axes and happen in PlanDimension.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if c.NormalizationRange[0] >= c.NormalizationRange[1] {
		return fmt.Errorf("%w: normalization range [%g,%g] is not increasing",
			ErrInvalidRange, c.NormalizationRange[0], c.NormalizationRange[1])
	}
	if c.ReweightAxis >= 0 && c.ReweightAxis == c.KstarAxis {
		return fmt.Errorf("reweight axis and kstar axis are both %d", c.KstarAxis)
	}
	for dim, cut := range c.Cuts {
		for i := 1; i < len(cut); i++ {
			if cut[i] <= cut[i-1] {
				return fmt.Errorf("%w: dimension %d boundaries not strictly increasing at index %d (%g <= %g)",
					ErrInvalidRange, dim, i, cut[i], cut[i-1])
			}
		}
	}
	if len(c.RebinFactors) == 0 {
		c.RebinFactors = []int{1}
	}
	return nil
}
