// Package evidence defines the audit trail of compliance decisions.
//
// Every evaluation produces exactly one Record: the decision outcome, score,
// compliance level, issue types, audit message and context, the risk
// indicator version, and the SHA-256 of the full decision JSON. Records are
// append-only; only the retention pruner deletes them.
//
// The subpackages split the concerns:
//
//	recorder   engine.AuditSink that builds records and writes them async
//	storage    memory, SQLite and PostgreSQL backends behind Storage
//	query      query validation, in-memory matching and paging
//	export     JSON and CSV exporters
//	retention  age and count based pruning on a cron schedule
//
// Typical wiring:
//
//	store, err := storage.Open(ctx, storage.Config{Backend: "sqlite", SQLite: sqliteCfg}, logger)
//	rec := recorder.NewRecorder(store, recorder.DefaultConfig(), recorder.WithLogger(logger))
//	defer rec.Close()
//	eng, err := engine.New(indicatorStore, engine.WithAuditSink(rec))
//
// Storage failures never change a decision. The recorder logs them and
// reports them through its result hook.
package evidence
