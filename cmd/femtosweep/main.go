// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command femtosweep computes femtoscopic correlation functions from
// paired same-event / mixed-event histograms, sweeping a combinatorial
// set of rebin factors and per-dimension cuts.
//
// Usage:
//
//	femtosweep plan --config sweep.yaml
//	femtosweep run --config sweep.yaml
//	femtosweep run --config sweep.yaml --parallel --workers 8
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/FemtoSweep/pkg/logging"
)

var (
	debugMode bool
	logDir    string

	appLogger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "femtosweep",
	Short: "Combinatorial correlation-function sweep engine",
	Long: `femtosweep expands a sparse cut specification and a rebin list into a
full cartesian job set, computes a normalized SE/ME correlation function
with propagated uncertainty for every job, and merges each result into a
deterministically named output store.

Commands:
  plan  - expand and print the job list without executing
  run   - execute the sweep sequentially or on a worker pool`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelInfo
		if debugMode {
			level = logging.LevelDebug
		}
		appLogger = logging.New(logging.Config{
			Level:   level,
			LogDir:  logDir,
			Service: "femtosweep",
		})
		slog.SetDefault(appLogger.Slog())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appLogger != nil {
			_ = appLogger.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Also write JSON logs to this directory")
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
