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
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/FemtoSweep/services/sweep/hist"
)

var schedulerTracer = otel.Tracer("sweep.scheduler")

// ErrorKind classifies a job failure for reporting and metrics.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrEmptyNormalizationRange):
		return "empty_normalization_range"
	case errors.Is(err, ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, ErrInvalidRebinFactor):
		return "invalid_rebin_factor"
	case errors.Is(err, ErrOutputCollision):
		return "output_collision"
	case errors.Is(err, ErrWrite):
		return "write"
	default:
		return "other"
	}
}

// JobResult is the terminal state of one job.
type JobResult struct {
	Job      Job
	Err      error
	Duration time.Duration
}

// Report summarizes a sweep run: one terminal JobResult per dispatched
// job, in job order, plus aggregate counts. Failed jobs keep their
// identifying (rebin, selection) tuple so a single combination can be
// reproduced without re-running the whole sweep.
type Report struct {
	RunID     string
	Results   []JobResult
	Completed int
	Failed    int
	Skipped   int
	Duration  time.Duration
}

// Sweep holds the immutable inputs of one run: the SE/ME snapshot, the
// expanded job list and the output store. Construction performs all
// configuration-time validation, so a Sweep that exists can be run.
//
// Thread Safety: Run may only be called once per Sweep. The input
// histograms are never mutated; every job works on rebinned/sliced
// copies.
type Sweep struct {
	cfg   *Config
	se    *hist.Histogram
	me    *hist.Histogram
	jobs  []Job
	store NodeWriter
	runID string
}

// NewSweep validates inputs, plans every dimension, expands the full
// job list and verifies output-path uniqueness.
//
// Outputs:
//   - *Sweep: Ready-to-run sweep.
//   - error: ErrInvalidRange, ErrInvalidRebinFactor or
//     ErrOutputCollision; all abort before any job executes.
func NewSweep(cfg *Config, se, me *hist.Histogram, store NodeWriter) (*Sweep, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if se == nil || me == nil {
		return nil, errors.New("SE and ME histograms are required")
	}
	if err := se.Validate(); err != nil {
		return nil, fmt.Errorf("SE histogram: %w", err)
	}
	if err := me.Validate(); err != nil {
		return nil, fmt.Errorf("ME histogram: %w", err)
	}
	if se.Rank() != me.Rank() {
		return nil, fmt.Errorf("SE/ME rank mismatch: %d vs %d", se.Rank(), me.Rank())
	}
	for d := range se.Axes {
		if se.Axes[d].NBins() != me.Axes[d].NBins() {
			return nil, fmt.Errorf("SE/ME binning differs on axis %d: %d vs %d bins",
				d, se.Axes[d].NBins(), me.Axes[d].NBins())
		}
	}
	if cfg.KstarAxis >= se.Rank() {
		return nil, fmt.Errorf("kstar axis %d out of range for rank %d", cfg.KstarAxis, se.Rank())
	}
	if cfg.ReweightAxis >= se.Rank() {
		return nil, fmt.Errorf("reweight axis %d out of range for rank %d", cfg.ReweightAxis, se.Rank())
	}
	if cfg.ReweightAxis >= 0 && se.Rank() < 2 {
		return nil, errors.New("reweighting requires at least 2 dimensions")
	}
	if len(cfg.Cuts) > se.Rank() {
		return nil, fmt.Errorf("%w: %d cut dimensions for rank %d", ErrInvalidRange, len(cfg.Cuts), se.Rank())
	}

	// A missing trailing dimension in Cuts means no cut there.
	dims := make([][]SubRange, se.Rank())
	for d := 0; d < se.Rank(); d++ {
		var boundaries []float64
		if d < len(cfg.Cuts) {
			boundaries = cfg.Cuts[d]
		}
		planned, err := PlanDimension(boundaries, se.Axes[d])
		if err != nil {
			return nil, fmt.Errorf("dimension %d: %w", d, err)
		}
		dims[d] = planned
	}

	combos := Combinations(dims)
	jobs, err := ExpandJobs(cfg.RebinFactors, combos, se.Axes[cfg.KstarAxis].NBins())
	if err != nil {
		return nil, err
	}
	if err := CheckCollisions(jobs); err != nil {
		return nil, err
	}

	return &Sweep{
		cfg:   cfg,
		se:    se,
		me:    me,
		jobs:  jobs,
		store: store,
		runID: uuid.NewString(),
	}, nil
}

// Jobs returns the expanded job list in execution order.
func (s *Sweep) Jobs() []Job { return s.jobs }

// RunID returns the identifier attached to this run's logs and spans.
func (s *Sweep) RunID() string { return s.runID }

// Run executes every job and merges each result into the output store.
//
// Description:
//
//	Sequential mode runs jobs in generation order and fails fast: the
//	first job error aborts the run. Parallel mode dispatches jobs to a
//	bounded worker pool; one job's failure does not cancel its
//	siblings, and all failures are collected into the Report. Because
//	jobs commute (see package doc), both modes produce an identical
//	output store.
//
//	Cancelling ctx stops dispatching pending jobs but lets in-flight
//	jobs complete, so no partially written node is left behind.
//
// Outputs:
//   - *Report: Terminal state per job. Never nil on a started run.
//   - error: First failure in sequential mode; aggregate failure count
//     in parallel mode; nil when every job completed.
func (s *Sweep) Run(ctx context.Context, parallel bool) (*Report, error) {
	ctx, span := schedulerTracer.Start(ctx, "sweep.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run_id", s.runID),
		attribute.Int("jobs", len(s.jobs)),
		attribute.Bool("parallel", parallel),
	)

	start := time.Now()
	if err := s.store.Reset(ctx, s.cfg.OutputDir); err != nil {
		err = fmt.Errorf("%w: reset output %s: %v", ErrWrite, s.cfg.OutputDir, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	slog.Info("starting sweep",
		slog.String("run_id", s.runID),
		slog.Int("jobs", len(s.jobs)),
		slog.Bool("parallel", parallel),
	)

	var report *Report
	var err error
	if parallel {
		report, err = s.runParallel(ctx)
	} else {
		report, err = s.runSequential(ctx)
	}
	report.RunID = s.runID
	report.Duration = time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(
		attribute.Int("completed", report.Completed),
		attribute.Int("failed", report.Failed),
		attribute.Int("skipped", report.Skipped),
	)

	slog.Info("sweep finished",
		slog.String("run_id", s.runID),
		slog.Int("completed", report.Completed),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped),
		slog.Duration("duration", report.Duration),
	)
	return report, err
}

// runJob executes the full pipeline for one job and writes its node.
func (s *Sweep) runJob(ctx context.Context, job Job) (err error) {
	ctx, span := schedulerTracer.Start(ctx, "sweep.runJob")
	defer span.End()
	span.SetAttributes(
		attribute.String("job", job.Name),
		attribute.Int("rebin", job.Rebin),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}()

	node, err := BuildNode(s.se, s.me, s.cfg, job)
	if err != nil {
		return err
	}
	// Cancellation stops dispatch, not in-flight jobs: a job that has
	// already produced its node must finish its write, or an abort
	// would leave the store without a node the report counts as done.
	writeCtx := context.WithoutCancel(ctx)
	if err := s.store.WriteNode(writeCtx, NodePath(s.cfg.OutputDir, job.Name), node); err != nil {
		return fmt.Errorf("%w: node %s: %v", ErrWrite, job.Name, err)
	}
	return nil
}

func (s *Sweep) runSequential(ctx context.Context) (*Report, error) {
	report := &Report{Results: make([]JobResult, 0, len(s.jobs))}
	for i, job := range s.jobs {
		if ctx.Err() != nil {
			report.Skipped = len(s.jobs) - i
			slog.Warn("sweep cancelled",
				slog.String("run_id", s.runID),
				slog.Int("skipped", report.Skipped),
			)
			return report, ctx.Err()
		}

		jobStart := time.Now()
		err := s.runJob(ctx, job)
		elapsed := time.Since(jobStart)
		jobDuration.Observe(elapsed.Seconds())
		report.Results = append(report.Results, JobResult{Job: job, Err: err, Duration: elapsed})

		if err != nil {
			jobsFailed.WithLabelValues(ErrorKind(err)).Inc()
			report.Failed++
			report.Skipped = len(s.jobs) - i - 1
			slog.Error("job failed, aborting sequential run",
				slog.String("run_id", s.runID),
				slog.String("job", job.Name),
				slog.String("error", err.Error()),
			)
			return report, fmt.Errorf("job %s: %w", job.Name, err)
		}
		jobsCompleted.Inc()
		report.Completed++
		slog.Debug("job completed",
			slog.String("job", job.Name),
			slog.Duration("duration", elapsed),
		)
	}
	return report, nil
}

func (s *Sweep) runParallel(ctx context.Context) (*Report, error) {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(s.jobs) {
		workers = len(s.jobs)
	}

	type indexed struct {
		idx int
		job Job
	}
	workChan := make(chan indexed)
	results := make([]JobResult, len(s.jobs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			// Panic recovery so one corrupt job cannot take down its
			// siblings; the panic is reported as that job's failure.
			for item := range workChan {
				func() {
					defer func() {
						if r := recover(); r != nil {
							buf := make([]byte, 4096)
							n := runtime.Stack(buf, false)
							slog.Error("panic in sweep worker",
								slog.Int("worker_id", workerID),
								slog.String("job", item.job.Name),
								slog.Any("panic", r),
								slog.String("stack", string(buf[:n])),
							)
							results[item.idx] = JobResult{
								Job: item.job,
								Err: fmt.Errorf("panic: %v", r),
							}
						}
					}()

					jobStart := time.Now()
					err := s.runJob(ctx, item.job)
					elapsed := time.Since(jobStart)
					jobDuration.Observe(elapsed.Seconds())
					results[item.idx] = JobResult{Job: item.job, Err: err, Duration: elapsed}
				}()
			}
		}(w)
	}

	// Dispatch stops on cancellation; in-flight jobs run to completion.
	dispatched := 0
	for i, job := range s.jobs {
		if ctx.Err() != nil {
			break
		}
		workChan <- indexed{idx: i, job: job}
		dispatched = i + 1
	}
	close(workChan)
	wg.Wait()

	report := &Report{
		Results: results[:dispatched],
		Skipped: len(s.jobs) - dispatched,
	}
	var failures []error
	for _, r := range report.Results {
		if r.Err != nil {
			jobsFailed.WithLabelValues(ErrorKind(r.Err)).Inc()
			report.Failed++
			failures = append(failures, fmt.Errorf("job %s: %w", r.Job.Name, r.Err))
			slog.Error("job failed",
				slog.String("run_id", s.runID),
				slog.String("job", r.Job.Name),
				slog.String("error", r.Err.Error()),
			)
			continue
		}
		jobsCompleted.Inc()
		report.Completed++
	}

	if len(failures) > 0 {
		return report, fmt.Errorf("%d of %d jobs failed: %w", report.Failed, len(s.jobs), errors.Join(failures...))
	}
	if ctx.Err() != nil {
		return report, ctx.Err()
	}
	return report, nil
}
