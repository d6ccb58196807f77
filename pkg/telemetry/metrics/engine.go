package metrics

import (
	"time"

	"mercator-hq/ddsguard/pkg/config"
	"mercator-hq/ddsguard/pkg/engine"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	evaluationDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5}
	scoreBuckets              = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
)

// EngineMetrics tracks compliance evaluations.
//
// Metrics:
//   - ddsguard_engine_evaluations_total{document_type,outcome}
//   - ddsguard_engine_evaluation_duration_seconds{document_type}
//   - ddsguard_engine_issues_total{type,severity}
//   - ddsguard_engine_score{document_type}
type EngineMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	issuesTotal        *prometheus.CounterVec
	score              *prometheus.HistogramVec
}

// NewEngineMetrics creates and registers engine metrics with the provided
// registry.
func NewEngineMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EngineMetrics {
	sub := subsystem(cfg, "engine")
	em := &EngineMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: sub,
				Name:      "evaluations_total",
				Help:      "Total number of document evaluations",
			},
			[]string{"document_type", "outcome"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: sub,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of document evaluations in seconds",
				Buckets:   evaluationDurationBuckets,
			},
			[]string{"document_type"},
		),

		issuesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: sub,
				Name:      "issues_total",
				Help:      "Total number of compliance issues raised",
			},
			[]string{"type", "severity"},
		),

		score: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: sub,
				Name:      "score",
				Help:      "Distribution of defined completeness and risk scores",
				Buckets:   scoreBuckets,
			},
			[]string{"document_type"},
		),
	}

	registry.MustRegister(
		em.evaluationsTotal,
		em.evaluationDuration,
		em.issuesTotal,
		em.score,
	)
	return em
}

// Record records one decision. Undefined scores are not observed.
func (em *EngineMetrics) Record(d *engine.Decision, elapsed time.Duration) {
	docType := string(d.DocumentType)
	em.evaluationsTotal.WithLabelValues(docType, d.Outcome()).Inc()
	em.evaluationDuration.WithLabelValues(docType).Observe(elapsed.Seconds())
	for _, issue := range d.Issues {
		em.issuesTotal.WithLabelValues(issue.Type, string(issue.Severity)).Inc()
	}
	if d.ScoreDefined {
		em.score.WithLabelValues(docType).Observe(d.Score)
	}
}
