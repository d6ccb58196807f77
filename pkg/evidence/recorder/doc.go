// Package recorder writes one evidence record per compliance decision.
//
// Recorder implements engine.AuditSink. For every decision it builds an
// evidence.Record carrying a fresh UUID, the audit message and context, the
// issue types in evaluation order and the SHA-256 of the decision JSON, then
// hands it to an evidence.Storage.
//
// With AsyncBuffer > 0 records are queued and written by a background worker
// so evaluation never waits on storage. Close drains the queue. With
// AsyncBuffer == 0 each record is written before Record returns, which is
// what short-lived CLI invocations use.
//
//	rec := recorder.NewRecorder(store, recorder.DefaultConfig(),
//	    recorder.WithLogger(logger),
//	    recorder.WithResultHook(metrics.RecordEvidence),
//	)
//	defer rec.Close()
//
//	eng, err := engine.New(indicatorStore, engine.WithAuditSink(rec))
package recorder
