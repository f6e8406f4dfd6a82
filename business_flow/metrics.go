package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	votesSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nightpulse",
			Name:      "votes_submitted_total",
			Help:      "Votes written, by mode and intent",
		},
		[]string{"mode", "intent"},
	)

	housepartyDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nightpulse",
			Name:      "houseparty_decisions_total",
			Help:      "Houseparty submission outcomes",
		},
		[]string{"outcome"},
	)

	reportsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nightpulse",
			Name:      "reports_received_total",
			Help:      "Abuse reports received, by target kind",
		},
		[]string{"kind"},
	)

	targetsHidden = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nightpulse",
			Name:      "targets_hidden_total",
			Help:      "Targets hidden by the report threshold, by kind",
		},
		[]string{"kind"},
	)

	summariesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nightpulse",
			Name:      "summaries_generated_total",
			Help:      "Prediction summaries computed, by mode and result",
		},
		[]string{"mode", "result"},
	)

	summaryCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nightpulse",
			Name:      "summary_cache_lookups_total",
			Help:      "Summary cache lookups, by result",
		},
		[]string{"result"},
	)
)
