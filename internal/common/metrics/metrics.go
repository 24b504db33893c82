package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_turns_processed_total",
			Help: "Total number of conversation turns processed",
		},
		[]string{"status"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "assistant_turn_duration_seconds",
			Help: "Duration of turn processing in seconds",
		},
		[]string{"status"},
	)

	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_stage_failures_total",
			Help: "Total number of pipeline stage failures",
		},
		[]string{"stage", "error_code"},
	)

	RetrievalCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_retrieval_candidates",
			Help:    "Number of candidates returned by the similarity service before filtering",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		},
	)

	ProfileSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_profile_saves_total",
			Help: "Total number of profile save attempts",
		},
		[]string{"outcome"},
	)
)
