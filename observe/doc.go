// Package observe bridges the runtime's telemetry hooks to OpenTelemetry.
//
// The Hook implements core.TelemetryHook: each logical call becomes one
// client span, and call outcomes feed a small set of counters and
// histograms. Providers default to the globals registered with the otel
// package, so wiring an exporter is the application's concern.
package observe
