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
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AleutianAI/FemtoSweep/services/sweep"
	"github.com/AleutianAI/FemtoSweep/services/sweep/storage"
)

var (
	runConfigPath string
	runParallel   bool
	runWorkers    int
	runTrace      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the configured sweep",
	Long: `Execute every (rebin factor, selection combination) job and write the
results into the output store.

Sequential mode (default) fails fast on the first job error. Parallel
mode isolates per-job failures and reports all of them at the end.
SIGINT stops dispatching pending jobs but lets in-flight jobs finish.

Examples:
  femtosweep run --config sweep.yaml
  femtosweep run --config sweep.yaml --parallel
  femtosweep run --config sweep.yaml --parallel --workers 4`,
	RunE: runSweep,
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "Path to the sweep configuration file (required)")
	runCmd.Flags().BoolVar(&runParallel, "parallel", false, "Run jobs on a worker pool")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Worker pool size (0 = available hardware parallelism)")
	runCmd.Flags().BoolVar(&runTrace, "trace", false, "Emit OpenTelemetry spans to stderr")
	_ = runCmd.MarkFlagRequired("config")
}

func runSweep(cmd *cobra.Command, args []string) error {
	if runTrace {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
		if err != nil {
			return fmt.Errorf("set up trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		defer tp.Shutdown(cmd.Context())
		otel.SetTracerProvider(tp)
	}

	cfg, err := sweep.LoadConfig(runConfigPath)
	if err != nil {
		return err
	}
	if runWorkers > 0 {
		cfg.Workers = runWorkers
	}

	se, me, err := storage.LoadPair(cfg.InputFile, cfg.PathSE, cfg.PathME)
	if err != nil {
		return err
	}

	store, err := storage.OpenBadger(storage.DefaultBadgerConfig(cfg.OutputPath))
	if err != nil {
		return err
	}
	defer store.Close()

	sw, err := sweep.NewSweep(cfg, se, me, store)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, runErr := sw.Run(ctx, runParallel)
	if report != nil {
		printReport(cmd, report)
		printMetrics(cmd)
	}
	return runErr
}

// printMetrics dumps the sweep's registered Prometheus metrics after
// the run. The process is one-shot, so the counters are surfaced here
// instead of on a scrape endpoint.
func printMetrics(cmd *cobra.Command) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		cmd.Printf("metrics unavailable: %v\n", err)
		return
	}
	for _, fam := range families {
		if !strings.HasPrefix(fam.GetName(), "femtosweep_") {
			continue
		}
		for _, m := range fam.GetMetric() {
			label := ""
			for _, l := range m.GetLabel() {
				label += fmt.Sprintf("{%s=%s}", l.GetName(), l.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				cmd.Printf("  %s%s %g\n", fam.GetName(), label, m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				cmd.Printf("  %s%s count=%d sum=%gs\n", fam.GetName(), label, h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
}

func printReport(cmd *cobra.Command, report *sweep.Report) {
	cmd.Printf("run %s: %d completed, %d failed, %d skipped in %s\n",
		report.RunID, report.Completed, report.Failed, report.Skipped, report.Duration)
	for _, r := range report.Results {
		if r.Err == nil {
			continue
		}
		cmd.Printf("  FAILED %s (%s): %v\n", r.Job.Name, sweep.ErrorKind(r.Err), r.Err)
	}
}
