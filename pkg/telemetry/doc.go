// Package telemetry groups ddsguard's observability packages:
//
//   - logging: the slog logger factory, context fields and secret redaction
//   - metrics: the Prometheus collector for evaluations, evidence writes,
//     indicator reloads and HTTP requests
//   - health: liveness and readiness probes
//
// The serve command builds all three from the telemetry section of the
// configuration file.
package telemetry
