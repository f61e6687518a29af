// Package metrics holds the Prometheus collectors for attempts, reviews and
// HTTP requests. Collectors register with the default registry on init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsStarted counts attempts by mode (adaptive, fixed).
	AttemptsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adaptiq_attempts_started_total",
		Help: "Attempts started by mode",
	}, []string{"mode"})

	// AttemptsFinished counts submitted attempts by mode.
	AttemptsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adaptiq_attempts_finished_total",
		Help: "Attempts submitted by mode",
	}, []string{"mode"})

	// AnswersGraded counts graded answers by outcome.
	AnswersGraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adaptiq_answers_graded_total",
		Help: "Answers graded by outcome",
	}, []string{"outcome"})

	// Terminations counts adaptive stops by reason.
	Terminations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adaptiq_adaptive_terminations_total",
		Help: "Adaptive attempt terminations by reason",
	}, []string{"reason"})

	// ReviewSignals counts review schedule updates by pathway and result.
	ReviewSignals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adaptiq_review_signals_total",
		Help: "Review signals applied by pathway and result",
	}, []string{"pathway", "result"})

	// RequestDuration tracks HTTP handler latency.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adaptiq_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	}, []string{"method", "route", "status"})
)

// Outcome labels a boolean result.
func Outcome(ok bool) string {
	if ok {
		return "correct"
	}
	return "incorrect"
}

// Result labels an error result.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
