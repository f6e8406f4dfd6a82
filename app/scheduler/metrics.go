package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recomputeQueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nightpulse",
			Subsystem: "recompute",
			Name:      "enqueued_total",
			Help:      "Live recompute requests by outcome (queued, coalesced, dropped)",
		},
		[]string{"outcome"},
	)

	recomputeRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nightpulse",
			Subsystem: "recompute",
			Name:      "runs_total",
			Help:      "Live tally recomputations by result",
		},
		[]string{"mode", "result"},
	)

	recomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "nightpulse",
			Subsystem: "recompute",
			Name:      "duration_seconds",
			Help:      "Time spent recomputing a live tally",
			Buckets:   prometheus.DefBuckets,
		},
	)

	jobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nightpulse",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by job and result (ok, error, skipped)",
		},
		[]string{"job", "result"},
	)
)
