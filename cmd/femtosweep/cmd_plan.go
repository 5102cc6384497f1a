// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"

	"github.com/AleutianAI/FemtoSweep/services/sweep"
	"github.com/AleutianAI/FemtoSweep/services/sweep/storage"
)

var planConfigPath string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Expand and print the job list without executing",
	Long: `Expand the configured cuts and rebin factors into the full job list
and print one line per job. Useful to verify the combinatorics before a
long sweep.

Examples:
  femtosweep plan --config sweep.yaml`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planConfigPath, "config", "", "Path to the sweep configuration file (required)")
	_ = planCmd.MarkFlagRequired("config")
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := sweep.LoadConfig(planConfigPath)
	if err != nil {
		return err
	}
	se, me, err := storage.LoadPair(cfg.InputFile, cfg.PathSE, cfg.PathME)
	if err != nil {
		return err
	}
	sw, err := sweep.NewSweep(cfg, se, me, storage.NewMemoryStore())
	if err != nil {
		return err
	}

	jobs := sw.Jobs()
	cmd.Printf("%d jobs (%d rebin factors)\n", len(jobs), len(cfg.RebinFactors))
	for _, job := range jobs {
		cmd.Printf("  %s\n", sweep.NodePath(cfg.OutputDir, job.Name))
	}
	return nil
}
