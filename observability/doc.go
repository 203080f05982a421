// Package observability provides an engine extension that counts job
// lifecycle events with OpenTelemetry counters.
package observability
