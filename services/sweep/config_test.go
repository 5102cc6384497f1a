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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestLoadConfig parses a full configuration file.
func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
input_file: input.json
path_se: femto/SE
path_me: femto/ME
output_path: ./out
output_dir: results
normalization_range: [0.24, 0.34]
rebin_factors: [1, 2, 4, 8]
kstar_axis: 0
reweight_axis: 1
cuts:
  - []
  - [0.5, 1.5, 3, 4]
workers: 4
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "input.json", cfg.InputFile)
	assert.Equal(t, "femto/SE", cfg.PathSE)
	assert.Equal(t, [2]float64{0.24, 0.34}, cfg.NormalizationRange)
	assert.Equal(t, []int{1, 2, 4, 8}, cfg.RebinFactors)
	assert.Equal(t, 1, cfg.ReweightAxis)
	require.Len(t, cfg.Cuts, 2)
	assert.Empty(t, cfg.Cuts[0])
	assert.Equal(t, []float64{0.5, 1.5, 3, 4}, cfg.Cuts[1])
	assert.Equal(t, 4, cfg.Workers)
}

// TestLoadConfigDefaults: omitted fields keep DefaultConfig values, in
// particular reweighting stays disabled and the rebin list defaults to
// a single identity pass.
func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
input_file: input.json
path_se: SE
path_me: ME
output_path: ./out
output_dir: results
normalization_range: [0.2, 0.4]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, -1, cfg.ReweightAxis)
	assert.Equal(t, []int{1}, cfg.RebinFactors)
	assert.Equal(t, 0, cfg.KstarAxis)
}

// TestLoadConfigValidation covers the rejection paths.
func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			"missing required field",
			`
path_se: SE
path_me: ME
output_path: ./out
output_dir: results
normalization_range: [0.2, 0.4]
`,
		},
		{
			"normalization range not increasing",
			`
input_file: input.json
path_se: SE
path_me: ME
output_path: ./out
output_dir: results
normalization_range: [0.4, 0.2]
`,
		},
		{
			"reweight equals kstar axis",
			`
input_file: input.json
path_se: SE
path_me: ME
output_path: ./out
output_dir: results
normalization_range: [0.2, 0.4]
kstar_axis: 1
reweight_axis: 1
`,
		},
		{
			"cut boundaries not increasing",
			`
input_file: input.json
path_se: SE
path_me: ME
output_path: ./out
output_dir: results
normalization_range: [0.2, 0.4]
cuts:
  - [1, 1, 2]
`,
		},
		{
			"non-positive rebin factor",
			`
input_file: input.json
path_se: SE
path_me: ME
output_path: ./out
output_dir: results
normalization_range: [0.2, 0.4]
rebin_factors: [1, 0]
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

// TestLoadConfigMissingFile surfaces the read error.
func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
