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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for sweep execution. Registered on the default
// registry; the counters are concurrency-safe, so workers update them
// directly instead of sharing mutable state.
var (
	jobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "femtosweep",
		Name:      "jobs_completed_total",
		Help:      "Number of sweep jobs that reached Completed.",
	})

	jobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "femtosweep",
		Name:      "jobs_failed_total",
		Help:      "Number of sweep jobs that reached Failed, by error kind.",
	}, []string{"kind"})

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "femtosweep",
		Name:      "job_duration_seconds",
		Help:      "Wall-clock duration of one sweep job.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	})
)
