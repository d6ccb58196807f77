// Package server exposes the evaluation engine over HTTP.
//
// Routes:
//
//	POST /v1/evaluate   evaluate a JSON or YAML document, optional ?now=YYYY-MM-DD
//	GET  /health        liveness
//	GET  /ready         readiness, 503 when a registered check fails
//	GET  /version       build information
//	GET  /metrics       Prometheus metrics, when a collector is configured
//
// Every response carries an X-Request-ID header. The ID is taken from the
// request when present, logged with each line written for the request and
// stored in the audit context of the decision.
//
// A decision is returned with 200 whether or not the document is compliant.
// Bodies larger than server.max_body_bytes are rejected with 413 and
// undecodable bodies with 400.
//
//	srv := server.NewServer(&cfg.Server, eng,
//	    server.WithHealth(checker),
//	    server.WithMetrics(collector, cfg.Telemetry.Metrics.Path),
//	    server.WithLogger(logger),
//	)
//	err := srv.Start(ctx)
package server
