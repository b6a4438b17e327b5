// Package metrics defines the Prometheus collectors exported by the mapping
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tritmap"

// Metrics groups the service collectors.
type Metrics struct {
	JobsStarted     *prometheus.CounterVec
	JobsFinished    *prometheus.CounterVec
	JobsRunning     prometheus.Gauge
	JobDuration     *prometheus.HistogramVec
	ScoreEvaluation prometheus.Counter
	BestScore       *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimization_jobs_started_total",
			Help:      "Optimization jobs started, by algorithm.",
		}, []string{"algorithm"}),
		JobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimization_jobs_finished_total",
			Help:      "Optimization jobs finished, by algorithm and final status.",
		}, []string{"algorithm", "status"}),
		JobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "optimization_jobs_running",
			Help:      "Optimization jobs currently running.",
		}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimization_job_duration_seconds",
			Help:      "Wall time of finished optimization jobs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"algorithm"}),
		ScoreEvaluation: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_evaluations_total",
			Help:      "Full arrangement score evaluations performed by optimizers.",
		}),
		BestScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_normalized_score",
			Help:      "Normalized score of the most recently completed job, by algorithm.",
		}, []string{"algorithm"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.JobsStarted,
			m.JobsFinished,
			m.JobsRunning,
			m.JobDuration,
			m.ScoreEvaluation,
			m.BestScore,
		)
	}
	return m
}

// AddEvaluations is suitable as an optimizer evaluation hook.
func (m *Metrics) AddEvaluations(n int) {
	m.ScoreEvaluation.Add(float64(n))
}
