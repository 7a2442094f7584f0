package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnswersAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quiz_tournament",
		Name:      "answers_accepted_total",
		Help:      "Answers that won the question-close race and were recorded.",
	})

	AnswersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quiz_tournament",
		Name:      "answers_rejected_total",
		Help:      "Answers rejected by precondition, partitioned by reason.",
	}, []string{"reason"})

	MatchesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quiz_tournament",
		Name:      "matches_started_total",
		Help:      "Matches successfully transitioned pending to active.",
	})

	MatchesFinished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quiz_tournament",
		Name:      "matches_finished_total",
		Help:      "Matches finalized exactly once.",
	})

	PhaseAdvances = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quiz_tournament",
		Name:      "phase_advances_total",
		Help:      "Tournament phase transitions performed.",
	})
)
