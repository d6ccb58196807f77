package metrics

import (
	"mercator-hq/ddsguard/pkg/config"
	"mercator-hq/ddsguard/pkg/indicators"

	"github.com/prometheus/client_golang/prometheus"
)

// EvidenceMetrics tracks audit record writes.
//
// Metrics:
//   - ddsguard_evidence_records_total{result}
type EvidenceMetrics struct {
	recordsTotal *prometheus.CounterVec
}

// NewEvidenceMetrics creates and registers evidence metrics with the
// provided registry.
func NewEvidenceMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EvidenceMetrics {
	em := &EvidenceMetrics{
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: subsystem(cfg, "evidence"),
				Name:      "records_total",
				Help:      "Total number of evidence records by write result",
			},
			[]string{"result"},
		),
	}
	registry.MustRegister(em.recordsTotal)
	return em
}

// Record counts one write result.
func (em *EvidenceMetrics) Record(result string) {
	em.recordsTotal.WithLabelValues(result).Inc()
}

// IndicatorMetrics tracks risk indicator reloads.
//
// Metrics:
//   - ddsguard_indicators_reloads_total{result}
//   - ddsguard_indicators_last_reload_timestamp_seconds
type IndicatorMetrics struct {
	reloadsTotal *prometheus.CounterVec
	lastReload   prometheus.Gauge
}

// NewIndicatorMetrics creates and registers indicator metrics with the
// provided registry.
func NewIndicatorMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *IndicatorMetrics {
	sub := subsystem(cfg, "indicators")
	im := &IndicatorMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: sub,
				Name:      "reloads_total",
				Help:      "Total number of risk indicator reload attempts",
			},
			[]string{"result"},
		),
		lastReload: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: sub,
				Name:      "last_reload_timestamp_seconds",
				Help:      "Load time of the active risk indicator snapshot",
			},
		),
	}
	registry.MustRegister(im.reloadsTotal, im.lastReload)
	return im
}

// Record counts a reload as "success" or "error". A successful reload also
// moves the last-reload gauge to the snapshot's load time.
func (im *IndicatorMetrics) Record(snap *indicators.Snapshot, err error) {
	if err != nil {
		im.reloadsTotal.WithLabelValues("error").Inc()
		return
	}
	im.reloadsTotal.WithLabelValues("success").Inc()
	if snap != nil {
		im.lastReload.Set(float64(snap.LoadedAt.Unix()))
	}
}
