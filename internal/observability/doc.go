// Package observability groups the engine's logging, metrics and tracing
// infrastructure.
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics for the persistence layer
//   - requestid: Request ID propagation through contexts
//   - tracing: OpenTelemetry tracing integration
package observability
