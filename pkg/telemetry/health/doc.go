// Package health implements the liveness and readiness probes served at
// /health and /ready.
//
// Liveness only reports that the process runs. Readiness runs every
// registered check concurrently, each bounded by the checker's timeout, and
// answers 503 when any of them fails:
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("indicators", health.IndicatorsCheck(store))
//	checker.RegisterCheck("evidence_storage", health.StorageCheck(sqliteStorage))
//	r.Get("/ready", checker.ReadinessHandler())
package health
