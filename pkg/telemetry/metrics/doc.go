// Package metrics exposes ddsguard's Prometheus metrics.
//
// A Collector owns a registry and four metric groups:
//
//   - engine: evaluations by document type and outcome, evaluation
//     duration, issues by type and severity, and the score distribution
//   - evidence: audit record writes by result (stored, failed, dropped)
//   - indicators: reload attempts and the load time of the active snapshot
//   - http: requests served by the API, by route, method and status
//
// The collector's methods match the hooks of the components they observe:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	store.OnReload(collector.ObserveReload)
//	rec := recorder.NewRecorder(storage, recCfg, recorder.WithResultHook(collector.RecordEvidence))
//	eng, _ := engine.New(store, engine.WithObserver(collector), engine.WithAuditSink(rec))
//	mux.Handle("/metrics", collector.Handler())
package metrics
