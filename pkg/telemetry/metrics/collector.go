package metrics

import (
	"time"

	"mercator-hq/ddsguard/pkg/config"
	"mercator-hq/ddsguard/pkg/engine"
	"mercator-hq/ddsguard/pkg/indicators"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collector owns every ddsguard metric and the registry they are exposed
// from. Its methods plug into the engine (ObserveEvaluation), the evidence
// recorder (RecordEvidence), the indicator store (ObserveReload) and the
// HTTP server (ObserveRequest). A disabled collector ignores all updates.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	engineMetrics    *EngineMetrics
	evidenceMetrics  *EvidenceMetrics
	indicatorMetrics *IndicatorMetrics
	requestMetrics   *RequestMetrics
}

// NewCollector registers all metrics on registry. A nil registry gets a
// fresh one; the Go runtime and process collectors are added to it.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	eng, _ := engine.New(store, engine.WithObserver(collector))
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = &config.MetricsConfig{Enabled: true}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return &Collector{
		config:           cfg,
		registry:         registry,
		engineMetrics:    NewEngineMetrics(cfg, registry),
		evidenceMetrics:  NewEvidenceMetrics(cfg, registry),
		indicatorMetrics: NewIndicatorMetrics(cfg, registry),
		requestMetrics:   NewRequestMetrics(cfg, registry),
	}
}

// Registry returns the registry metrics are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveEvaluation records one engine decision. It implements
// engine.Observer.
func (c *Collector) ObserveEvaluation(d *engine.Decision, elapsed time.Duration) {
	if !c.config.Enabled || d == nil {
		return
	}
	c.engineMetrics.Record(d, elapsed)
}

// RecordEvidence counts one evidence write by result ("stored", "failed",
// "dropped"). It matches the recorder's result hook signature.
func (c *Collector) RecordEvidence(result string) {
	if !c.config.Enabled {
		return
	}
	c.evidenceMetrics.Record(result)
}

// ObserveReload counts an indicator reload attempt. It matches
// indicators.ReloadHook.
func (c *Collector) ObserveReload(snap *indicators.Snapshot, err error) {
	if !c.config.Enabled {
		return
	}
	c.indicatorMetrics.Record(snap, err)
}

// ObserveRequest records one served HTTP request.
func (c *Collector) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.Record(route, method, status, elapsed)
}

// subsystem joins the configured subsystem with a metric group name.
func subsystem(cfg *config.MetricsConfig, group string) string {
	if cfg.Subsystem == "" {
		return group
	}
	return cfg.Subsystem + "_" + group
}
