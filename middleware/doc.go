// Package middleware provides composable middleware for job execution.
//
// A [Middleware] wraps a job handler. Middleware are composed with [Chain]
// and run before each job executes; the first middleware in the slice is
// the outermost wrapper.
//
//	// logging → recover → handler
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging]: logs job name, queue, duration and outcome
//   - [Recover]: converts panics to errors
//   - [Timeout]: cancels the job context after the job's Timeout
//   - [Tracing]: wraps execution in an OpenTelemetry span
//   - [Metrics]: records per-job duration and outcome counters
//   - [Current]: exposes the running job through [JobFromContext]
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting.
package middleware
