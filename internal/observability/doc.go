// Package observability provides structured logging and metrics for the
// planning agent.
//
// This package implements:
//   - Structured logging with contextual fields (zap-based)
//   - Correlation ID binding from request contexts
//   - Prometheus-compatible metrics collection
//
// Every layer of the invocation path (invoker, retry policy, fallback
// orchestrator, tool facade) is instrumented through it. Logging is
// best-effort: a failure to emit a record never aborts the invocation
// it observes.
package observability
