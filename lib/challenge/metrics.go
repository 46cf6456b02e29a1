package challenge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	challengesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_challenges_issued",
		Help: "The total number of verification challenges issued",
	}, []string{"kind"})

	challengesSolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_challenges_solved",
		Help: "The total number of verification challenges answered correctly",
	}, []string{"kind"})

	failedValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_failed_validations",
		Help: "The total number of answers that did not pass, by reason",
	}, []string{"reason"})

	generationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_challenge_generation_failures",
		Help: "The total number of puzzles that could not be rendered",
	})

	challengesSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_challenges_swept",
		Help: "The total number of expired or exhausted challenges removed by the sweeper",
	})

	activeChallenges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gatekeeper_active_challenges",
		Help: "The number of challenges currently held in memory",
	})

	TimeTaken = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gatekeeper_time_taken",
		Help:    "The time taken for a member to solve a challenge (seconds)",
		Buckets: prometheus.ExponentialBucketsRange(1, 600, 12),
	}, []string{"kind"})
)
